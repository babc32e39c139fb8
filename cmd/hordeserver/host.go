package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/duskforge/revenant/internal/ai"
	"github.com/duskforge/revenant/internal/config"
	"github.com/duskforge/revenant/internal/data"
	"github.com/duskforge/revenant/internal/drop"
	"github.com/duskforge/revenant/internal/mirror"
	"github.com/duskforge/revenant/internal/model"
	"github.com/duskforge/revenant/internal/reaper"
	"github.com/duskforge/revenant/internal/spawn"
	"github.com/duskforge/revenant/internal/transport"
	"github.com/duskforge/revenant/internal/world"
)

// hostEnv is the scheduler's view of the session.
type hostEnv struct {
	player    *model.SimplePlayer
	intensity atomic.Uint64 // math.Float64bits
}

func newHostEnv(player *model.SimplePlayer) *hostEnv {
	e := &hostEnv{player: player}
	e.SetIntensity(1.0)
	return e
}

func (e *hostEnv) PlayerPosition() model.Vec3 { return e.player.Position() }
func (e *hostEnv) PlayerFacing() model.Vec3   { return model.NewVec3(0, 0, 1) }
func (e *hostEnv) CurrentZone() model.ZoneID  { return data.ZoneGraveMeadows }
func (e *hostEnv) PlayerLevel() int           { return e.player.Level() }

func (e *hostEnv) Intensity() float64 {
	return math.Float64frombits(e.intensity.Load())
}

func (e *hostEnv) SetIntensity(v float64) {
	e.intensity.Store(math.Float64bits(v))
}

// remoteRoster tracks remote player proxies in registration order; the
// order is the distance tie-break after the local player.
type remoteRoster struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*mirror.RemotePlayer
}

func newRemoteRoster() *remoteRoster {
	return &remoteRoster{byID: make(map[string]*mirror.RemotePlayer)}
}

func (r *remoteRoster) upsert(state mirror.PlayerState, link mirror.PeerLink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos := model.NewVec3(state.X, state.Y, state.Z)
	if p, ok := r.byID[state.PlayerID]; ok {
		p.UpdatePosition(pos)
		return
	}
	r.byID[state.PlayerID] = mirror.NewRemotePlayer(state.PlayerID, link, pos, state.Level)
	r.order = append(r.order, state.PlayerID)
	slog.Info("remote player joined", "player", state.PlayerID)
}

func (r *remoteRoster) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	for i, cur := range r.order {
		if cur == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	slog.Info("remote player left", "player", id)
}

func (r *remoteRoster) targets(local model.Target) []model.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Target, 0, 1+len(r.order))
	out = append(out, local)
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func runHost(ctx context.Context, cfg config.Config, registry *world.Registry, terrain world.Terrain, player *model.SimplePlayer) error {
	store := openStore(ctx, cfg)
	if store != nil {
		defer store.Close()
	}

	env := newHostEnv(player)
	hub := transport.NewHub()
	roster := newRemoteRoster()
	sink := logSink{}

	targetsFn := func() []model.Target { return roster.targets(player) }

	aiMgr := ai.NewManager(cfg.Combat, targetsFn, terrain, sink)
	factory := spawn.NewFactory(registry, terrain, cfg.Scaling)
	ids := world.NewIDGenerator(100000)
	spawner := spawn.NewManager(cfg.Spawning, factory, registry, ids, aiMgr, env, sink)

	if store != nil {
		if n, err := store.LoadKillCounter(ctx); err != nil {
			slog.Warn("loading kill counter failed", "error", err)
		} else if n > 0 {
			spawner.RestoreKillCounter(n)
			slog.Info("kill counter restored", "count", n)
		}
	}

	drops := drop.NewResolver(cfg.Drops, nil, nil)
	var encounterStore reaper.EncounterStore
	if store != nil {
		encounterStore = store
	}
	reap := reaper.NewManager(registry, aiMgr, spawner, drops, nil, encounterStore, nil,
		player.Level, cfg.Disposal.MaxPerTick)

	publisher := mirror.NewPublisher(registry, hub)
	slog.Info("host session started", "session", publisher.Session())

	g, ctx := errgroup.WithContext(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	serveHTTP(ctx, g, cfg, mux)

	// Tick loop: all entity updates, spawn decisions and disposal draining
	// run synchronously here, once per frame.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()
		delta := cfg.TickInterval.Seconds()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				spawner.Tick(now, delta)
				aiMgr.TickAll(now, delta)
				reap.Tick(ctx, now)
			}
		}
	})

	// Sync loop: publish the authoritative snapshot on its own cadence.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Mirror.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				if err := publisher.Publish(now); err != nil {
					slog.Warn("snapshot publish failed", "error", err)
				}
			}
		}
	})

	// Inbound loop: peer messages (player-state heartbeats) and departures.
	// A departed peer's proxy comes off the target list immediately so
	// enemies stop chasing a frozen position.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case in := <-hub.Inbound():
				handleHostInbound(in, roster, hub)
			case id := <-hub.Departures():
				roster.remove(id)
			}
		}
	})

	return g.Wait()
}

func handleHostInbound(in transport.Inbound, roster *remoteRoster, hub *transport.Hub) {
	env, err := mirror.Decode(in.Data)
	if err != nil {
		slog.Warn("bad inbound frame", "peer", in.PeerID, "error", err)
		return
	}

	switch env.Type {
	case mirror.MsgPlayerState:
		var state mirror.PlayerState
		if err := json.Unmarshal(env.Payload, &state); err != nil {
			slog.Warn("bad player state", "peer", in.PeerID, "error", err)
			return
		}
		roster.upsert(state, hub)
	default:
		slog.Debug("ignoring inbound message", "peer", in.PeerID, "type", env.Type)
	}
}

// logSink is the default fire-and-forget notification sink: spawn/death/
// boss cues become log lines. A real deployment wires audio/HUD here.
type logSink struct{}

func (logSink) EnemySpawned(e *model.Enemy) {
	slog.Debug("spawn cue", "id", e.ID(), "archetype", e.Template().Name)
}

func (logSink) EnemyDied(e *model.Enemy) {
	slog.Debug("death cue", "id", e.ID(), "archetype", e.Template().Name)
}

func (logSink) BossSpawned(e *model.Enemy) {
	slog.Info("boss warning cue", "id", e.ID(), "archetype", e.Template().Name)
}

func (logSink) WaveSpawned(count int) {
	slog.Info("wave warning cue", "count", count)
}
