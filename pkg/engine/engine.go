// Package engine wires the stores and response layers into the
// persona loop that serves both the CLI chat and the channel gateway.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adhocore/gronx"

	"github.com/omokage-app/omokage/pkg/bus"
	"github.com/omokage-app/omokage/pkg/config"
	"github.com/omokage-app/omokage/pkg/emotion"
	"github.com/omokage-app/omokage/pkg/learner"
	"github.com/omokage-app/omokage/pkg/logger"
	"github.com/omokage-app/omokage/pkg/memorydb"
	"github.com/omokage-app/omokage/pkg/persona"
	"github.com/omokage-app/omokage/pkg/responder"
	"github.com/omokage-app/omokage/pkg/store"
)

const pruneCheckInterval = 30 * time.Second

// Loop consumes user turns, generates persona replies, and feeds the
// finished exchanges back into the learner.
type Loop struct {
	cfg       *config.Config
	store     store.StateStore
	bus       *bus.MessageBus
	emotions  *emotion.Engine
	memories  *memorydb.DB
	learned   *learner.Learner
	generator *responder.Generator
	gron      *gronx.Gronx
	lastPrune time.Time
	running   atomic.Bool

	mu      sync.RWMutex
	persona persona.Persona
}

// NewLoop builds the full engine stack on top of the given store.
func NewLoop(cfg *config.Config, st store.StateStore, p persona.Persona, msgBus *bus.MessageBus, rng *rand.Rand) *Loop {
	emotions := emotion.NewEngine(st, rng)
	memories := memorydb.NewDB(st, rng)
	learned := learner.New(st, rng, learner.WithWindowSize(cfg.Engine.WindowSize))

	return &Loop{
		cfg:       cfg,
		store:     st,
		bus:       msgBus,
		emotions:  emotions,
		memories:  memories,
		learned:   learned,
		generator: responder.New(emotions, memories, learned, rng),
		gron:      gronx.New(),
		persona:   p,
	}
}

// Persona returns the active persona.
func (l *Loop) Persona() persona.Persona {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.persona
}

// SetPersona swaps the active persona.
func (l *Loop) SetPersona(p persona.Persona) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.persona = p
}

// Emotions exposes the emotion engine for trigger management commands.
func (l *Loop) Emotions() *emotion.Engine { return l.emotions }

// Memories exposes the memory store for memory management commands.
func (l *Loop) Memories() *memorydb.DB { return l.memories }

// Learned exposes the adaptive learner.
func (l *Loop) Learned() *learner.Learner { return l.learned }

// ProcessDirect generates a reply for one user turn, persists both
// sides of the exchange, and feeds the turn to the learner.
func (l *Loop) ProcessDirect(ctx context.Context, content, sessionKey string) (string, error) {
	history, err := l.store.RecentMessages(ctx, sessionKey, l.cfg.Engine.HistoryLimit)
	if err != nil {
		return "", fmt.Errorf("failed to load session history: %w", err)
	}

	response := l.generator.Generate(l.Persona(), history, content)

	now := time.Now()
	if err := l.store.AppendMessage(ctx, store.Message{
		SessionKey: sessionKey,
		Role:       store.RoleUser,
		Content:    content,
		CreatedAt:  now,
	}); err != nil {
		logger.WarnCF("engine", "Failed to persist user turn", map[string]any{"error": err.Error()})
	}
	if err := l.store.AppendMessage(ctx, store.Message{
		SessionKey: sessionKey,
		Role:       store.RolePersona,
		Content:    response,
		CreatedAt:  now,
	}); err != nil {
		logger.WarnCF("engine", "Failed to persist persona turn", map[string]any{"error": err.Error()})
	}

	l.learned.Observe([]learner.Turn{{User: content, Bot: response}})

	return response, nil
}

// Run consumes inbound turns from the bus until ctx is cancelled,
// publishing replies outbound. A cron-scheduled prune bounds the
// learned table in the background.
func (l *Loop) Run(ctx context.Context) error {
	l.running.Store(true)

	go l.pruneLoop(ctx)

	for l.running.Load() {
		select {
		case <-ctx.Done():
			return nil
		default:
			msg, ok := l.bus.ConsumeInbound(ctx)
			if !ok {
				continue
			}

			logger.InfoCF("engine", "Processing message", map[string]any{
				"channel":     msg.Channel,
				"sender_id":   msg.SenderID,
				"session_key": msg.SessionKey,
			})

			response, err := l.ProcessDirect(ctx, msg.Content, msg.SessionKey)
			if err != nil {
				logger.ErrorCF("engine", "Failed to process message", map[string]any{"error": err.Error()})
				continue
			}

			l.bus.PublishOutbound(bus.OutboundMessage{
				Channel: msg.Channel,
				ChatID:  msg.ChatID,
				Content: response,
			})
		}
	}

	return nil
}

// Stop halts the run loop.
func (l *Loop) Stop() {
	l.running.Store(false)
}

// pruneLoop fires the learned-table prune when the configured cron
// expression is due, at most once per minute.
func (l *Loop) pruneLoop(ctx context.Context) {
	if l.cfg.Engine.PruneSchedule == "" {
		return
	}

	ticker := time.NewTicker(pruneCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := l.maybePrune(now); err != nil {
				logger.WarnCF("engine", "Invalid prune schedule", map[string]any{
					"schedule": l.cfg.Engine.PruneSchedule,
					"error":    err.Error(),
				})
				return
			}
		}
	}
}

// maybePrune runs the prune when the schedule is due for now's minute.
// Each minute fires at most once regardless of tick frequency.
func (l *Loop) maybePrune(now time.Time) (bool, error) {
	schedule := l.cfg.Engine.PruneSchedule
	if schedule == "" {
		return false, nil
	}
	minute := now.Truncate(time.Minute)
	if minute.Equal(l.lastPrune) {
		return false, nil
	}
	due, err := l.gron.IsDue(schedule, now)
	if err != nil {
		return false, err
	}
	if !due {
		return false, nil
	}
	l.lastPrune = minute
	l.learned.Prune(l.cfg.Engine.MaxLearnedKeywords, l.cfg.Engine.MaxResponsesPerKeyword)
	return true, nil
}
