package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/duskforge/revenant/internal/ai"
	"github.com/duskforge/revenant/internal/config"
	"github.com/duskforge/revenant/internal/data"
	"github.com/duskforge/revenant/internal/mirror"
	"github.com/duskforge/revenant/internal/model"
	"github.com/duskforge/revenant/internal/reaper"
	"github.com/duskforge/revenant/internal/spawn"
	"github.com/duskforge/revenant/internal/transport"
	"github.com/duskforge/revenant/internal/world"
)

func runClient(ctx context.Context, cfg config.Config, registry *world.Registry, terrain world.Terrain, player *model.SimplePlayer, joinURL string) error {
	link, err := transport.Dial(ctx, joinURL, player.ID())
	if err != nil {
		return err
	}
	defer link.Close()

	slog.Info("joined host", "url", joinURL, "player", player.ID())

	// The mirrored side runs no spawn logic and no AI: enemies exist only
	// as shadows of the host's snapshots.
	factory := spawn.NewFactory(registry, terrain, cfg.Scaling)
	aiMgr := ai.NewManager(cfg.Combat, func() []model.Target { return nil }, terrain, nil)
	reap := reaper.NewManager(registry, aiMgr, nil, nil, nil, nil, nil, player.Level, cfg.Disposal.MaxPerTick)

	reconciler := mirror.NewReconciler(
		cfg.Mirror,
		registry,
		factory,
		terrain,
		reap.EnqueueDisposal,
		func() model.ZoneID { return data.ZoneGraveMeadows },
		player.Level,
	)

	g, ctx := errgroup.WithContext(ctx)

	// Tick loop: staleness sweep and bounded disposal draining.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				reconciler.SweepStale(now)
				reap.Tick(ctx, now)
			}
		}
	})

	// Heartbeat loop: keep the host's remote target proxy positioned.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Mirror.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				pos := player.Position()
				frame, err := mirror.Encode(mirror.MsgPlayerState, mirror.PlayerState{
					PlayerID: player.ID(),
					X:        pos.X, Y: pos.Y, Z: pos.Z,
					Level: player.Level(),
				})
				if err != nil {
					continue
				}
				if err := link.Broadcast(frame); err != nil {
					slog.Warn("heartbeat send failed", "error", err)
				}
			}
		}
	})

	// Inbound loop: apply snapshots and host-routed player messages.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case msg, ok := <-link.Inbound():
				if !ok {
					slog.Warn("host connection closed")
					return nil
				}
				handleClientInbound(msg, reconciler, player)
			}
		}
	})

	return g.Wait()
}

func handleClientInbound(msg []byte, reconciler *mirror.Reconciler, player *model.SimplePlayer) {
	env, err := mirror.Decode(msg)
	if err != nil {
		slog.Warn("bad frame from host", "error", err)
		return
	}

	switch env.Type {
	case mirror.MsgEnemySnapshot:
		var snap mirror.Snapshot
		if err := json.Unmarshal(env.Payload, &snap); err != nil {
			slog.Warn("bad snapshot", "error", err)
			return
		}
		reconciler.Apply(snap, time.Now())

	case mirror.MsgPlayerDamage:
		var dmg mirror.PlayerDamage
		if err := json.Unmarshal(env.Payload, &dmg); err != nil {
			return
		}
		if dmg.PlayerID == player.ID() {
			player.TakeDamage(dmg.Amount)
		}

	case mirror.MsgExpShare:
		var exp mirror.ExpShare
		if err := json.Unmarshal(env.Payload, &exp); err != nil {
			return
		}
		if exp.PlayerID == player.ID() {
			player.GainExperience(exp.Amount)
		}
	}
}
