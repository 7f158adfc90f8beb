package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"debond-math/internal/auction"
	"debond-math/internal/domain"
	"debond-math/internal/fixedpoint"
	"debond-math/internal/observability"
)

const feedWriteWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PriceTick is one auction feed message.
type PriceTick struct {
	Now     int64  `json:"now"`
	Price   string `json:"price"`
	Raw     string `json:"raw"`
	Settled bool   `json:"settled"`
}

// parseFeedQuery reads the auction and the tick interval from the query:
// start, duration (seconds), max, min (decimal amounts), curve, interval
// (Go duration, e.g. "2s").
func (s *Server) parseFeedQuery(r *http.Request) (domain.AuctionParams, time.Duration, error) {
	q := r.URL.Query()
	var p domain.AuctionParams

	start, err := strconv.ParseInt(q.Get("start"), 10, 64)
	if err != nil {
		return p, 0, fmt.Errorf("start=%q: %w", q.Get("start"), fixedpoint.ErrDomain)
	}
	duration, err := strconv.ParseInt(q.Get("duration"), 10, 64)
	if err != nil {
		return p, 0, fmt.Errorf("duration=%q: %w", q.Get("duration"), fixedpoint.ErrDomain)
	}
	maxAmount, err := fixedpoint.FromDecimalString(q.Get("max"))
	if err != nil {
		return p, 0, fmt.Errorf("max: %w", err)
	}
	minAmount, err := fixedpoint.FromDecimalString(q.Get("min"))
	if err != nil {
		return p, 0, fmt.Errorf("min: %w", err)
	}
	curve, err := domain.ParseCurveKind(q.Get("curve"))
	if err != nil {
		return p, 0, err
	}
	p = domain.AuctionParams{
		StartingTime: start,
		Duration:     duration,
		MaxAmount:    maxAmount,
		MinAmount:    minAmount,
		Curve:        curve,
	}
	if err := p.Validate(); err != nil {
		return p, 0, err
	}

	interval := s.feedDefaultInterval
	if raw := q.Get("interval"); raw != "" {
		if interval, err = time.ParseDuration(raw); err != nil {
			return p, 0, fmt.Errorf("interval=%q: %w", raw, fixedpoint.ErrDomain)
		}
	}
	if interval < s.feedMinInterval {
		return p, 0, fmt.Errorf("interval %s below minimum %s: %w", interval, s.feedMinInterval, fixedpoint.ErrDomain)
	}
	return p, interval, nil
}

// handleAuctionFeed streams the auction price every interval until the
// auction window closes or the client goes away.
func (s *Server) handleAuctionFeed(w http.ResponseWriter, r *http.Request) {
	params, interval, err := s.parseFeedQuery(r)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	observability.FeedClientConnected(1)
	defer observability.FeedClientConnected(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only to notice the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		tick, err := s.priceTick(params)
		if err != nil {
			s.logger.Warn().Err(err).Msg("auction feed stopped")
			s.closeFeed(conn, websocket.CloseInternalServerErr, err.Error())
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
		if err := conn.WriteJSON(tick); err != nil {
			return
		}
		observability.RecordFeedMessage()

		if tick.Settled {
			s.closeFeed(conn, websocket.CloseNormalClosure, "auction settled")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) priceTick(p domain.AuctionParams) (PriceTick, error) {
	now := s.clock().Unix()
	at := now
	settled := auction.Settled(p, now)
	if settled {
		// Past the window the formula keeps falling; the feed reports the
		// settlement price instead.
		_, at = auction.Window(p)
	}
	price, err := auction.CurrentPrice(p, at)
	if err != nil {
		return PriceTick{}, err
	}
	return PriceTick{Now: now, Price: price.Decimal().String(), Raw: price.String(), Settled: settled}, nil
}

func (s *Server) closeFeed(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(feedWriteWait))
}
