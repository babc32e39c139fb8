package model

// EventSink receives fire-and-forget notifications for audio cues and HUD
// notifications. All methods may be called with a nil sink via Notify; a
// missing sink never affects correctness.
type EventSink interface {
	EnemySpawned(e *Enemy)
	EnemyDied(e *Enemy)
	BossSpawned(e *Enemy)
	WaveSpawned(count int)
}

// Notify invokes fn only when the sink is present.
func Notify(sink EventSink, fn func(EventSink)) {
	if sink == nil {
		return
	}
	fn(sink)
}

// QuestTracker is notified once per authoritative enemy death during batch
// removal. Nil trackers are tolerated.
type QuestTracker interface {
	UpdateEnemyKill(e *Enemy)
}
