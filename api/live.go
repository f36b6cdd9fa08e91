package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"

	"github.com/Sorinen/service-boutique/internal/monitor"
)

// Notifier announces a change made by this view to its own live pages.
type Notifier interface {
	Notify() monitor.Change
}

func notify(n Notifier) {
	if n != nil {
		n.Notify()
	}
}

// Hub fans ledger changes out to the open SSE streams. A slow stream misses
// intermediate changes but always sees the latest one.
type Hub struct {
	mu   sync.Mutex
	subs map[chan monitor.Change]struct{}
}

// NewHub returns a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: map[chan monitor.Change]struct{}{}}
}

// Publish is meant to be registered with Monitor.OnChange.
func (h *Hub) Publish(change monitor.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- change:
		default:
			// Replace the pending change with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- change:
			default:
			}
		}
	}
}

// Subscribe returns a channel of changes and its cancel function.
func (h *Hub) Subscribe() (<-chan monitor.Change, func()) {
	ch := make(chan monitor.Change, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// Subscribers returns the number of open streams.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

type liveSignals struct {
	Count     int    `json:"salesCount"`
	Trigger   string `json:"lastTrigger"`
	UpdatedAt string `json:"updatedAt"`
}

// liveHandler streams page fragments over datastar SSE.
type liveHandler struct {
	pages  *pagesHandler
	hub    *Hub
	logger *zap.Logger
}

func (h *liveHandler) handleDashboardStream(ctx *gin.Context) {
	h.stream(ctx, "dashboard", h.pages.dashboardFragments)
}

func (h *liveHandler) handleHistoryStream(ctx *gin.Context) {
	filter := ctx.Query("filter")
	h.stream(ctx, "history", func() ([]string, int, error) {
		return h.pages.historyFragments(filter)
	})
}

// stream sends the fragments once, then again after every ledger change,
// until the client goes away.
func (h *liveHandler) stream(ctx *gin.Context, page string, render func() ([]string, int, error)) {
	changes, cancel := h.hub.Subscribe()
	defer cancel()

	sse := datastar.NewSSE(ctx.Writer, ctx.Request)
	logger := h.logger.With(zap.String("page", page), zap.String("request_id", ctx.GetString("request_id")))

	push := func(trigger string) bool {
		fragments, count, err := render()
		if err != nil {
			logger.Error("render live fragments", zap.Error(err))
			return false
		}
		for _, html := range fragments {
			if err := sse.PatchElements(html); err != nil {
				logger.Debug("live stream closed", zap.Error(err))
				return false
			}
		}
		signals, err := json.Marshal(liveSignals{
			Count:     count,
			Trigger:   trigger,
			UpdatedAt: time.Now().Format(time.RFC3339),
		})
		if err != nil {
			logger.Error("marshal live signals", zap.Error(err))
			return false
		}
		if err := sse.PatchSignals(signals); err != nil {
			logger.Debug("live stream closed", zap.Error(err))
			return false
		}
		return true
	}

	if !push(string(monitor.TriggerStart)) {
		return
	}
	for {
		select {
		case <-ctx.Request.Context().Done():
			return
		case change := <-changes:
			if !push(string(change.Trigger)) {
				return
			}
		}
	}
}
