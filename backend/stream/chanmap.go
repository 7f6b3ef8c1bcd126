// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package stream

import (
	"fmt"
	"sync"

	"github.com/zhangyunhao116/skipmap"
)

const chanBufferSize = 1024

// ChanMap maps symbols to buffered channels of realtime data.
type ChanMap[T any] struct {
	sm                    *skipmap.StringMap[chan T]
	pendingCloseList      []chan T
	pendingCloseListMutex sync.Mutex
}

func NewChanMap[T any]() *ChanMap[T] {
	return &ChanMap[T]{
		sm: skipmap.NewString[chan T](),
	}
}

func (m *ChanMap[T]) addPendingClose(c chan T) {
	m.pendingCloseListMutex.Lock()
	m.pendingCloseList = append(m.pendingCloseList, c)
	m.pendingCloseListMutex.Unlock()
}

// ClearPendingClose closes channels of unsubscribed symbols.
// It must be called by the goroutine which adds data.
func (m *ChanMap[T]) ClearPendingClose() {
	m.pendingCloseListMutex.Lock()
	for _, c := range m.pendingCloseList {
		close(c)
	}
	m.pendingCloseList = nil
	m.pendingCloseListMutex.Unlock()
}

// Clear removes and closes all channels.
// It must be called by the goroutine which adds data.
func (m *ChanMap[T]) Clear() {
	m.sm.Range(
		func(k string, c chan T) bool {
			if _, ok := m.sm.LoadAndDelete(k); ok {
				close(c)
			}
			return true
		},
	)
	m.ClearPendingClose()
}

func (m *ChanMap[T]) Len() int {
	return m.sm.Len()
}

func (m *ChanMap[T]) Symbols() []string {
	symbols := make([]string, 0, m.sm.Len())
	m.sm.Range(func(k string, _ chan T) bool {
		symbols = append(symbols, k)
		return true
	})
	return symbols
}

func (m *ChanMap[T]) Subscribe(symbol string) (chan T, error) {
	// this is required to be a buffered channel, so that it is possible to delete old data in case processing is too slow
	// new realtime data is always more important than old data
	c := make(chan T, chanBufferSize)
	if _, exists := m.sm.LoadOrStore(symbol, c); exists {
		return nil, fmt.Errorf("already subscribed to %s", symbol)
	}
	return c, nil
}

func (m *ChanMap[T]) Unsubscribe(symbol string) error {
	c, exists := m.sm.LoadAndDelete(symbol)
	if !exists {
		return fmt.Errorf("cannot unsubscribe %s: not subscribed", symbol)
	}
	// we should not close the channel here, because this might cause a race condition.
	m.addPendingClose(c)
	return nil
}

func (m *ChanMap[T]) AddNewData(symbol string, data T) error {
	c, exists := m.sm.Load(symbol)
	if !exists {
		// silently ignore, as this may happen while unsubscribing
		return nil
	}
	select {
	case c <- data:
		return nil
	// usually if a golang channel is full, we would drop additional data.
	// but new data is much more important in this case, so instead we
	// delete old data.
	default:
	}
	select {
	case <-c:
	default:
		return fmt.Errorf("symbol %s: buffer cannot be read from or written to", symbol)
	}
	select {
	case c <- data:
		return fmt.Errorf("symbol %s: buffer overflow, old realtime data is being removed", symbol)
	default:
		return fmt.Errorf("symbol %s: buffer overflow, new realtime data is being dropped", symbol)
	}
}
