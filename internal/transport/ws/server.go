package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"aethernexus.forge/internal/protocol"
	"aethernexus.forge/internal/sim/forge"
)

type Server struct {
	engine *forge.Engine
	log    *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(e *forge.Engine, logger *log.Logger) *Server {
	return &Server{
		engine: e,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out, ok := s.handshake(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Event fan-out goroutine: forwards engine events, dropping the
		// oldest queued frame when the socket cannot keep up.
		events, cancelSub := s.engine.Subscribe()
		defer cancelSub()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-events:
					if !ok {
						return
					}
					b, err := json.Marshal(protocol.EventMsg{
						Type: protocol.TypeEvent, ProtocolVersion: protocol.Version, Event: ev,
					})
					if err != nil {
						continue
					}
					sendLatest(out, b)
				}
			}
		}()

		acks := make(chan forge.ActionAck, 64)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case ack := <-acks:
					b, err := json.Marshal(protocol.AckMsg{
						Type: protocol.TypeAck, ProtocolVersion: protocol.Version,
						AckFor: ack.ID, OK: ack.Result.OK,
						Code: ack.Result.Code, Message: ack.Result.Message,
						ServerTick: ack.Tick,
					})
					if err != nil {
						continue
					}
					sendLatest(out, b)
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				s.rejectFrame(out, "", "undecodable frame")
				continue
			}
			if base.Type != protocol.TypeAct {
				s.rejectFrame(out, "", "unexpected type "+base.Type)
				continue
			}
			var act protocol.ActMsg
			if err := json.Unmarshal(msg, &act); err != nil {
				s.rejectFrame(out, "", "malformed ACT")
				continue
			}
			if act.ProtocolVersion != protocol.Version {
				s.rejectFrame(out, act.ID, "unsupported protocol_version")
				continue
			}
			s.engine.Submit(forge.ActionEnvelope{Act: act, Reply: acks})
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (out chan []byte, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil, false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil, false
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 64
	}
	if maxQ > 1024 {
		maxQ = 1024
	}
	out = make(chan []byte, maxQ)

	sess := s.engine.Session()
	cfg := sess.Tuning()
	cats := sess.Catalogs()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionParams: protocol.SessionParams{
			TickRateHz:      cfg.TickRateHz,
			TicksPerGameDay: cfg.TicksPerGameDay,
			DaysPerMonth:    cfg.DaysPerMonth,
			Seed:            sess.Seed(),
		},
		Catalogs: protocol.CatalogDigests{
			ResourcesDigest: cats.Resources.Digest,
			RecipesDigest:   cats.Recipes.Digest,
			WorkersDigest:   cats.Workers.Digest,
			UpgradesDigest:  cats.Upgrades.Digest,
			CouponsDigest:   cats.Coupons.Digest,
		},
	}
	b, err := json.Marshal(welcome)
	if err != nil {
		return nil, false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return nil, false
	}
	return out, true
}

// rejectFrame acks a frame the reader could not hand to the engine.
func (s *Server) rejectFrame(out chan []byte, ackFor, message string) {
	b, err := json.Marshal(protocol.AckMsg{
		Type: protocol.TypeAck, ProtocolVersion: protocol.Version,
		AckFor: ackFor, OK: false,
		Code: protocol.ErrProtoBadRequest, Message: message,
	})
	if err != nil {
		return
	}
	sendLatest(out, b)
}

// sendLatest enqueues b, evicting the oldest queued frame if full.
func sendLatest(out chan []byte, b []byte) {
	for {
		select {
		case out <- b:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}
