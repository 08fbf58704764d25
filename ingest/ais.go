// Package ingest is the AIS transport: a TCP client with backoff
// reconnect that decodes NMEA0183-wrapped AIVDM/AIVDO payloads and hands
// the core its own already-decoded PositionReport/ShipStaticData records.
// It sits entirely outside the core (spec.md §1): the core never sees a
// raw NMEA line or an ais.Packet.
//
// Generalized from the teacher's builtin/ais/ais.go: the same fragment
// reassembly and per-message-type switch, redirected at a direct registry
// call instead of a gRPC Push to a WorldService.
package ingest

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	goais "github.com/BertoldVdb/go-ais"
	"github.com/adrianmo/go-nmea"

	"github.com/brovakt/canal/engine"
)

// Sink is the narrow interface the ingest layer writes through; satisfied
// by *engine.VesselRegistry. Kept as an interface so tests can supply a
// fake instead of a real registry.
type Sink interface {
	UpdateVessel(engine.PositionReport) engine.VesselSnapshot
	UpdateStaticData(engine.ShipStaticData)
}

// messageFragment accumulates multi-part AIVDM payloads, per the teacher's
// MessageFragment.
type messageFragment struct {
	parts    map[int64][]byte
	numParts int64
	started  time.Time
}

// Client is a single AIS TCP stream reader.
type Client struct {
	addr string
	sink Sink
	log  *slog.Logger

	fragMu    sync.Mutex
	fragments map[int64]*messageFragment
}

// NewClient builds a Client that will dial host:port once Run is called.
func NewClient(addr string, sink Sink, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		addr:      addr,
		sink:      sink,
		log:       log.With("component", "ais_ingest"),
		fragments: make(map[int64]*messageFragment),
	}
}

// Run connects, reads lines until the connection drops or ctx is
// cancelled, and reconnects with a fixed backoff — the same shape as the
// teacher's runStream loop.
func (c *Client) Run(ctx context.Context) error {
	decoder := goais.CodecNew(false, false)
	decoder.DropSpace = true

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := net.DialTimeout("tcp", c.addr, 10*time.Second)
		if err != nil {
			c.log.Error("connect failed, retrying", "addr", c.addr, "error", err)
			if !sleepOrDone(ctx, 5*time.Second) {
				return ctx.Err()
			}
			continue
		}

		c.readUntilDisconnect(ctx, conn, decoder)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("stream disconnected, reconnecting", "addr", c.addr)
		if !sleepOrDone(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Client) readUntilDisconnect(ctx context.Context, conn net.Conn, decoder *goais.Codec) {
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		select {
		case <-ctx.Done():
			return
		default:
		}
		c.processLine(scanner.Text(), decoder)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// processLine parses one NMEA sentence and, once a complete AIVDM payload
// is available, decodes it and updates the sink. Malformed or unknown
// lines are dropped silently (spec.md §6: "invalid or unparsable records
// are dropped silently before reaching the core").
func (c *Client) processLine(line string, decoder *goais.Codec) {
	if idx := strings.IndexAny(line, "!$"); idx >= 0 {
		line = line[idx:]
	} else {
		return
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return
	}

	vdm, ok := sentence.(nmea.VDMVDO)
	if !ok {
		return
	}

	payload, ok := c.reassemble(vdm)
	if !ok {
		return
	}

	packet := decoder.DecodePacket(payload)
	if packet == nil {
		return
	}
	c.handlePacket(packet)
}

func (c *Client) reassemble(vdm nmea.VDMVDO) ([]byte, bool) {
	if vdm.NumFragments <= 1 {
		return vdm.Payload, true
	}

	c.fragMu.Lock()
	defer c.fragMu.Unlock()

	frag, exists := c.fragments[vdm.MessageID]
	if !exists {
		frag = &messageFragment{parts: make(map[int64][]byte), numParts: vdm.NumFragments, started: time.Now()}
		c.fragments[vdm.MessageID] = frag
	}
	frag.parts[vdm.FragmentNumber] = vdm.Payload
	if int64(len(frag.parts)) < frag.numParts {
		return nil, false
	}

	var complete []byte
	for i := int64(1); i <= frag.numParts; i++ {
		part, ok := frag.parts[i]
		if !ok {
			return nil, false
		}
		complete = append(complete, part...)
	}
	delete(c.fragments, vdm.MessageID)
	return complete, true
}

func (c *Client) handlePacket(packet goais.Packet) {
	now := time.Now().UTC()
	switch msg := packet.(type) {
	case goais.PositionReport:
		c.handlePosition(msg.UserID, float64(msg.Latitude), float64(msg.Longitude), float64(msg.Sog), float64(msg.Cog), float64(msg.TrueHeading), now)
	case goais.StandardClassBPositionReport:
		c.handlePosition(msg.UserID, float64(msg.Latitude), float64(msg.Longitude), float64(msg.Sog), float64(msg.Cog), float64(msg.TrueHeading), now)
	case goais.ExtendedClassBPositionReport:
		c.handlePosition(msg.UserID, float64(msg.Latitude), float64(msg.Longitude), float64(msg.Sog), float64(msg.Cog), float64(msg.TrueHeading), now)
	case goais.ShipStaticData:
		c.handleStatic(msg)
	}
}

func (c *Client) handlePosition(mmsi uint32, lat, lon, sog, cog, heading float64, now time.Time) {
	if mmsi == 0 {
		return
	}
	c.sink.UpdateVessel(engine.PositionReport{
		MMSI:        mmsiString(mmsi),
		Lat:         lat,
		Lon:         lon,
		SOG:         sog,
		COG:         cog,
		TrueHeading: heading,
		TsUTC:       now,
	})
}

func (c *Client) handleStatic(msg goais.ShipStaticData) {
	if msg.UserID == 0 {
		return
	}
	name := strings.TrimSpace(msg.Name)
	callSign := strings.TrimSpace(msg.CallSign)
	if name == "" && callSign == "" {
		return
	}
	c.sink.UpdateStaticData(engine.ShipStaticData{
		MMSI:     mmsiString(msg.UserID),
		Name:     name,
		CallSign: callSign,
	})
}

func mmsiString(id uint32) string {
	// decimal, matching the MMSI's natural broadcast representation.
	const digits = "0123456789"
	if id == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = digits[id%10]
		id /= 10
	}
	return string(buf[i:])
}
