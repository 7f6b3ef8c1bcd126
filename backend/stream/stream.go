// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package stream

import (
	"context"
	"daytrader/config"
	"daytrader/stockval"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/ericlagergren/decimal"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const MessageTypeTrade = "trade"

var ErrClosed = errors.New("trade stream is closed")

// Tick is a single trade.
type Tick struct {
	Symbol     string
	Timestamp  time.Time
	Price      *decimal.Big
	Volume     *decimal.Big
	Conditions []string
}

type tradeEntry struct {
	C []string     `json:"c,omitempty"`
	P *decimal.Big `json:"p,omitempty"`
	S string       `json:"s,omitempty"`
	T int64        `json:"t,omitempty"`
	V *decimal.Big `json:"v,omitempty"`
}

type tradeMessage struct {
	Data []tradeEntry `json:"data,omitempty"`
	Type string       `json:"type,omitempty"`
}

type command struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// Stream receives live trades over a single websocket connection.
// The connection is established on the first subscription.
type Stream struct {
	wsUrl  string
	token  string
	ticks  *ChanMap[Tick]
	logger zerolog.Logger
	now    func() time.Time

	mutex  sync.Mutex
	conn   *websocket.Conn
	done   chan struct{}
	closed bool
}

func NewStream(wsUrl string, token string, logger zerolog.Logger) *Stream {
	return &Stream{
		wsUrl:  wsUrl,
		token:  token,
		ticks:  NewChanMap[Tick](),
		logger: logger,
		now:    time.Now,
	}
}

func NewStreamFromConfig(c config.Config, logger zerolog.Logger) (*Stream, error) {
	appConfig, err := c.Copy()
	if err != nil {
		return nil, err
	}
	if appConfig.Backend.WsUrl == "" {
		return nil, errors.New("missing websocket url")
	}
	return NewStream(appConfig.Backend.WsUrl, appConfig.Backend.Token, logger), nil
}

func (s *Stream) dialUrl() (string, error) {
	u, err := url.Parse(s.wsUrl)
	if err != nil {
		return "", fmt.Errorf("invalid websocket url: %w", err)
	}
	if s.token != "" {
		query := u.Query()
		query.Set("token", s.token)
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// connect must be called with the mutex locked.
func (s *Stream) connect(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}
	dialUrl, err := s.dialUrl()
	if err != nil {
		return err
	}
	s.logger.Info().Str("url", s.wsUrl).Msg("establishing realtime connection")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, dialUrl, nil)
	if err != nil {
		return fmt.Errorf("could not connect to trade stream: %w", err)
	}
	s.conn = conn
	s.done = make(chan struct{})
	go s.handleRealtimeData(conn, s.done)
	return nil
}

func (s *Stream) handleRealtimeData(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var data tradeMessage
		err := conn.ReadJSON(&data)

		s.ticks.ClearPendingClose()

		if err != nil {
			s.mutex.Lock()
			if s.conn == conn {
				s.conn = nil
			}
			s.ticks.Clear()
			s.mutex.Unlock()
			s.logger.Info().Err(err).Msg("realtime connection was terminated")
			return
		}
		if data.Type != MessageTypeTrade {
			continue
		}
		for _, entry := range data.Data {
			tradeTime := time.UnixMilli(entry.T)
			if tradeTime.Before(s.now().Add(-time.Minute)) {
				s.logger.Debug().Str("symbol", entry.S).Time("time", tradeTime).Msg("old realtime data received")
			}
			tick := Tick{
				Symbol:     entry.S,
				Timestamp:  tradeTime,
				Price:      entry.P,
				Volume:     entry.V,
				Conditions: entry.C,
			}
			if err = s.ticks.AddNewData(entry.S, tick); err != nil {
				s.logger.Warn().Err(err).Msg("realtime data")
			}
		}
	}
}

// send must be called with the mutex locked, websocket writes are not concurrent.
func (s *Stream) send(commandType string, symbol string) error {
	return s.conn.WriteJSON(command{Type: commandType, Symbol: symbol})
}

// Subscribe returns a channel receiving the trades of a symbol.
// The channel is closed after Unsubscribe or when the connection terminates.
func (s *Stream) Subscribe(ctx context.Context, symbol string) (<-chan Tick, error) {
	symbol, err := stockval.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err = s.connect(ctx); err != nil {
		return nil, err
	}
	c, err := s.ticks.Subscribe(symbol)
	if err != nil {
		return nil, err
	}
	if err = s.send("subscribe", symbol); err != nil {
		_ = s.ticks.Unsubscribe(symbol)
		return nil, fmt.Errorf("subscribe %s: %w", symbol, err)
	}
	return c, nil
}

func (s *Stream) Unsubscribe(symbol string) error {
	symbol, err := stockval.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err = s.ticks.Unsubscribe(symbol); err != nil {
		return err
	}
	if s.conn == nil {
		s.ticks.ClearPendingClose()
		return nil
	}
	if err = s.send("unsubscribe", symbol); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", symbol, err)
	}
	return nil
}

func (s *Stream) Symbols() []string {
	return s.ticks.Symbols()
}

// Close terminates the connection and closes all tick channels.
func (s *Stream) Close() error {
	s.mutex.Lock()
	s.closed = true
	conn, done := s.conn, s.done
	if conn == nil {
		s.ticks.Clear()
	}
	s.mutex.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	err := conn.Close()
	<-done
	return err
}
