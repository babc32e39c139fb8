package mirror

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskforge/revenant/internal/config"
	"github.com/duskforge/revenant/internal/data"
	"github.com/duskforge/revenant/internal/model"
	"github.com/duskforge/revenant/internal/spawn"
	"github.com/duskforge/revenant/internal/world"
)

func TestMain(m *testing.M) {
	data.LoadArchetypes()
	os.Exit(m.Run())
}

// fakeLink records broadcast frames and per-peer sends.
type fakeLink struct {
	broadcasts [][]byte
	sent       map[string][][]byte
	fail       bool
}

func newFakeLink() *fakeLink {
	return &fakeLink{sent: map[string][][]byte{}}
}

func (l *fakeLink) Broadcast(msg []byte) error {
	if l.fail {
		return errors.New("link down")
	}
	l.broadcasts = append(l.broadcasts, msg)
	return nil
}

func (l *fakeLink) SendToPeer(peerID string, msg []byte) error {
	if l.fail {
		return errors.New("link down")
	}
	l.sent[peerID] = append(l.sent[peerID], msg)
	return nil
}

func testScaling() config.Scaling {
	return config.Scaling{
		CombatBalanceHealth: 1, CombatBalanceDamage: 1,
		DifficultyHealth: 1, DifficultyDamage: 1, DifficultyExperience: 1,
		EliteBonus: 1, ChampionBonus: 1, BossBonus: 1,
	}
}

func testMirrorConfig() config.Mirror {
	return config.Mirror{
		SyncInterval: 100 * time.Millisecond,
		StaleAfter:   5 * time.Second,
		DesyncAfter:  30 * time.Second,
	}
}

func newReconcilerFixture(discard DiscardFunc) (*Reconciler, *world.Registry, *spawn.Factory) {
	registry := world.NewRegistry()
	terrain := world.FlatTerrain{}
	factory := spawn.NewFactory(registry, terrain, testScaling())
	r := NewReconciler(
		testMirrorConfig(), registry, factory, terrain, discard,
		func() model.ZoneID { return data.ZoneGraveMeadows },
		func() int { return 5 },
	)
	return r, registry, factory
}

func snapshotOf(session uuid.UUID, now time.Time, entries ...EnemyEntry) Snapshot {
	snap := Snapshot{Session: session, SentAt: now.UnixMilli(), Enemies: map[uint32]EnemyEntry{}}
	for _, e := range entries {
		snap.Enemies[e.ID] = e
	}
	return snap
}

func entry(id uint32, x, z, health float64) EnemyEntry {
	return EnemyEntry{ID: id, X: x, Z: z, Health: health, Archetype: int32(data.ArchGhoul)}
}

func TestApply_CreatesMirroredEnemies(t *testing.T) {
	r, registry, _ := newReconcilerFixture(nil)
	session := uuid.New()
	now := time.Now()

	r.Apply(snapshotOf(session, now, entry(1, 10, 10, 42), entry(2, -5, 8, 30)), now)

	require.Equal(t, 2, registry.Count())
	e, ok := registry.Get(1)
	require.True(t, ok)
	assert.True(t, e.IsMirrored())
	assert.Equal(t, 42.0, e.Health())
	assert.Equal(t, data.ArchGhoul, e.Archetype())
	assert.Equal(t, now.UnixMilli(), e.LastUpdatedAt().UnixMilli())
}

func TestApply_UpdatesExisting(t *testing.T) {
	r, registry, _ := newReconcilerFixture(nil)
	session := uuid.New()
	now := time.Now()

	r.Apply(snapshotOf(session, now, entry(1, 10, 10, 42)), now)

	later := now.Add(100 * time.Millisecond)
	r.Apply(snapshotOf(session, later, entry(1, 20, 15, 17)), later)

	e, _ := registry.Get(1)
	assert.Equal(t, 20.0, e.Position().X)
	assert.Equal(t, 15.0, e.Position().Z)
	assert.Equal(t, 17.0, e.Health())
	assert.Equal(t, later.UnixMilli(), e.LastUpdatedAt().UnixMilli())
}

func TestApply_ZeroHealthMarksDying(t *testing.T) {
	r, registry, _ := newReconcilerFixture(nil)
	session := uuid.New()
	now := time.Now()

	r.Apply(snapshotOf(session, now, entry(1, 10, 10, 42)), now)
	r.Apply(snapshotOf(session, now, entry(1, 10, 10, 0)), now)

	e, _ := registry.Get(1)
	assert.Equal(t, model.StateDying, e.State())
}

func TestApply_RemovesAbsentEnemies(t *testing.T) {
	var discarded []*model.Enemy
	r, registry, _ := newReconcilerFixture(func(e *model.Enemy) { discarded = append(discarded, e) })
	session := uuid.New()
	now := time.Now()

	r.Apply(snapshotOf(session, now, entry(1, 10, 10, 42), entry(2, -5, 8, 30)), now)
	require.Equal(t, 2, registry.Count())

	// id 2 vanishes from the next snapshot
	r.Apply(snapshotOf(session, now, entry(1, 10, 10, 42)), now)

	assert.Equal(t, 1, registry.Count())
	_, ok := registry.Get(2)
	assert.False(t, ok)
	require.Len(t, discarded, 1)
	assert.Equal(t, uint32(2), discarded[0].ID())
	assert.Equal(t, model.StateRemoved, discarded[0].State())
}

func TestApply_NeverTouchesAuthoritativeEnemies(t *testing.T) {
	r, registry, factory := newReconcilerFixture(nil)
	session := uuid.New()
	now := time.Now()

	local, err := factory.Create(data.ArchSkeleton, 7, model.NewVec3(1, 0, 1), model.OwnershipAuthoritative, data.ZoneGraveMeadows, 5)
	require.NoError(t, err)
	before := local.Health()

	// a snapshot that reports id 7 elsewhere, and omits it next time
	r.Apply(snapshotOf(session, now, entry(7, 99, 99, 1)), now)
	assert.Equal(t, before, local.Health())
	assert.Equal(t, 1.0, local.Position().X)

	r.Apply(snapshotOf(session, now), now)
	_, ok := registry.Get(7)
	assert.True(t, ok, "authoritative records survive snapshot absence")
}

func TestApply_SessionChangeClearsMirrored(t *testing.T) {
	var discarded []*model.Enemy
	r, registry, _ := newReconcilerFixture(func(e *model.Enemy) { discarded = append(discarded, e) })
	now := time.Now()

	r.Apply(snapshotOf(uuid.New(), now, entry(1, 10, 10, 42), entry(2, -5, 8, 30)), now)
	require.Equal(t, 2, registry.Count())

	// new host process: everything held is discarded, new population created
	r.Apply(snapshotOf(uuid.New(), now, entry(9, 3, 3, 10)), now)

	assert.Equal(t, 1, registry.Count())
	_, ok := registry.Get(9)
	assert.True(t, ok)
	assert.Len(t, discarded, 2)
}

func TestApply_SkipsCorruptEntries(t *testing.T) {
	r, registry, _ := newReconcilerFixture(nil)
	now := time.Now()

	bad := entry(1, math.NaN(), 10, 42)
	worse := entry(2, 5, 5, math.NaN())
	r.Apply(snapshotOf(uuid.New(), now, bad, worse, entry(3, 1, 1, 10)), now)

	assert.Equal(t, 1, registry.Count())
	_, ok := registry.Get(3)
	assert.True(t, ok)
}

func TestSweepStale_RemovesQuietEntities(t *testing.T) {
	var discarded []*model.Enemy
	r, registry, _ := newReconcilerFixture(func(e *model.Enemy) { discarded = append(discarded, e) })
	session := uuid.New()
	now := time.Now()

	r.Apply(snapshotOf(session, now, entry(1, 10, 10, 42), entry(2, -5, 8, 30)), now)

	// keep id 1 fresh; id 2 stops updating
	later := now.Add(7 * time.Second)
	r.Apply(snapshotOf(session, later, entry(1, 10, 10, 42), entry(2, -5, 8, 30)), now.Add(time.Second))
	e1, _ := registry.Get(1)
	e1.Touch(later)

	r.SweepStale(later)

	_, ok := registry.Get(1)
	assert.True(t, ok)
	_, ok = registry.Get(2)
	assert.False(t, ok, "quiet entity removed on its own timer")
	require.Len(t, discarded, 1)
	assert.Equal(t, uint32(2), discarded[0].ID())
}

func TestSweepStale_DesyncClearsEverything(t *testing.T) {
	r, registry, _ := newReconcilerFixture(nil)
	now := time.Now()

	r.Apply(snapshotOf(uuid.New(), now, entry(1, 10, 10, 42), entry(2, -5, 8, 30)), now)

	r.SweepStale(now.Add(31 * time.Second))

	assert.Equal(t, 0, registry.Count())
}

func TestReconciler_ConcurrentApplyAndSweep(t *testing.T) {
	// The inbound-message goroutine applies snapshots while the tick
	// goroutine sweeps, exactly like the client wiring. Run under the race
	// detector this exercises the shared session bookkeeping.
	r, registry, _ := newReconcilerFixture(nil)
	session := uuid.New()
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := range 200 {
			now := start.Add(time.Duration(i) * time.Millisecond)
			r.Apply(snapshotOf(session, now, entry(uint32(i%4+1), 10, 10, 42)), now)
		}
	}()
	go func() {
		defer wg.Done()
		for i := range 200 {
			r.SweepStale(start.Add(time.Duration(i) * time.Millisecond))
		}
	}()
	wg.Wait()

	// each snapshot named exactly one id, so the sweeps and absent-id
	// removals must have left at most one mirrored record behind
	assert.LessOrEqual(t, registry.Count(), 1)
}

func TestSweepStale_NoSessionIsNoop(t *testing.T) {
	r, registry, factory := newReconcilerFixture(nil)
	_, err := factory.Create(data.ArchGhoul, 1, model.NewVec3(0, 0, 0), model.OwnershipMirrored, data.ZoneGraveMeadows, 5)
	require.NoError(t, err)

	r.SweepStale(time.Now().Add(time.Hour))
	assert.Equal(t, 1, registry.Count())
}

func TestPublisher_SnapshotContents(t *testing.T) {
	registry := world.NewRegistry()
	factory := spawn.NewFactory(registry, world.FlatTerrain{}, testScaling())
	now := time.Now()

	visible, err := factory.Create(data.ArchGhoul, 1, model.NewVec3(4, 0, 6), model.OwnershipAuthoritative, data.ZoneGraveMeadows, 5)
	require.NoError(t, err)

	hidden, err := factory.Create(data.ArchGhoul, 2, model.NewVec3(1, 0, 1), model.OwnershipAuthoritative, data.ZoneGraveMeadows, 5)
	require.NoError(t, err)
	hidden.Hide()

	broken, err := factory.Create(data.ArchGhoul, 3, model.NewVec3(2, 0, 2), model.OwnershipAuthoritative, data.ZoneGraveMeadows, 5)
	require.NoError(t, err)
	broken.SetPosition(model.NewVec3(math.NaN(), 0, 0))

	p := NewPublisher(registry, newFakeLink())
	snap := p.BuildSnapshot(now)

	assert.Equal(t, p.Session(), snap.Session)
	assert.Equal(t, now.UnixMilli(), snap.SentAt)
	require.Len(t, snap.Enemies, 1, "hidden and corrupt entities are omitted")

	got := snap.Enemies[1]
	assert.Equal(t, visible.Position().X, got.X)
	assert.Equal(t, visible.Health(), got.Health)
	assert.Equal(t, int32(data.ArchGhoul), got.Archetype)
	assert.False(t, got.Boss)
}

func TestPublisher_PublishRoundTrip(t *testing.T) {
	registry := world.NewRegistry()
	factory := spawn.NewFactory(registry, world.FlatTerrain{}, testScaling())
	_, err := factory.Create(data.ArchBoneColossus, 1, model.NewVec3(0, 0, 0), model.OwnershipAuthoritative, data.ZoneGraveMeadows, 5)
	require.NoError(t, err)

	link := newFakeLink()
	p := NewPublisher(registry, link)

	require.NoError(t, p.Publish(time.Now()))
	require.Len(t, link.broadcasts, 1)

	env, err := Decode(link.broadcasts[0])
	require.NoError(t, err)
	assert.Equal(t, MsgEnemySnapshot, env.Type)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(env.Payload, &snap))
	assert.Equal(t, p.Session(), snap.Session)
	require.Len(t, snap.Enemies, 1)
	assert.True(t, snap.Enemies[1].Boss)
}

func TestPublisher_BroadcastFailure(t *testing.T) {
	link := newFakeLink()
	link.fail = true
	p := NewPublisher(world.NewRegistry(), link)

	assert.Error(t, p.Publish(time.Now()))
}

func TestRemotePlayer_RoutesDamageAndExperience(t *testing.T) {
	link := newFakeLink()
	p := NewRemotePlayer("peer-1", link, model.NewVec3(0, 0, 0), 7)

	p.TakeDamage(12.5)
	p.GainExperience(30)

	frames := link.sent["peer-1"]
	require.Len(t, frames, 2)

	env, err := Decode(frames[0])
	require.NoError(t, err)
	require.Equal(t, MsgPlayerDamage, env.Type)
	var dmg PlayerDamage
	require.NoError(t, json.Unmarshal(env.Payload, &dmg))
	assert.Equal(t, 12.5, dmg.Amount)
	assert.Equal(t, "peer-1", dmg.PlayerID)

	env, err = Decode(frames[1])
	require.NoError(t, err)
	require.Equal(t, MsgExpShare, env.Type)
	var exp ExpShare
	require.NoError(t, json.Unmarshal(env.Payload, &exp))
	assert.Equal(t, 30.0, exp.Amount)
}

func TestRemotePlayer_IgnoresCorruptPositions(t *testing.T) {
	p := NewRemotePlayer("peer-1", newFakeLink(), model.NewVec3(1, 2, 3), 7)

	p.UpdatePosition(model.NewVec3(math.Inf(1), 0, 0))
	assert.Equal(t, model.NewVec3(1, 2, 3), p.Position())

	p.UpdatePosition(model.NewVec3(4, 5, 6))
	assert.Equal(t, model.NewVec3(4, 5, 6), p.Position())
}
