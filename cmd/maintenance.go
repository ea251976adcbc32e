package main

import (
	"context"
	"runtime/debug"
	"time"

	"shipdesk/db"
	"shipdesk/internal/eventlog"
	"shipdesk/internal/location"
	"shipdesk/internal/logger"
	"shipdesk/internal/session"
	"shipdesk/models"
)

type maintenance struct {
	cache        *location.Cache
	sessions     *session.Manager
	snapshots    db.LocationSnapshotRepository
	dbManager    *db.DBManager
	events       *eventlog.EventLogService
	pruneEvery   time.Duration
	idleTimeout  time.Duration
	persistEvery time.Duration
}

// runMaintenance prunes the location cache, ends idle sessions and periodically
// persists the long-lived location lookups until done is closed.
func runMaintenance(m *maintenance, done <-chan bool) {
	log := logger.GetLogger("maintenance")
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Maintenance panic recovered: %v", r)
			log.Errorf("Maintenance stack trace: %s", debug.Stack())
		}
		log.Info("Maintenance loop stopped")
	}()

	pruneEvery := m.pruneEvery
	if pruneEvery <= 0 {
		pruneEvery = 5 * time.Minute
	}
	prune := time.NewTicker(pruneEvery)
	defer prune.Stop()
	persist := time.NewTicker(m.persistEvery)
	defer persist.Stop()

	log.Infof("Maintenance loop started (prune every %s)", pruneEvery)
	for {
		select {
		case <-done:
			return
		case <-prune.C:
			guarded("prune", func() {
				if removed := m.cache.Prune(); removed > 0 {
					log.Debugf("Pruned %d expired location entries", removed)
				}
				if m.idleTimeout > 0 {
					for _, s := range m.sessions.ExpireIdle(m.idleTimeout) {
						m.events.Record(s.Username, models.SessionExpired, "")
					}
				}
			})
		case <-persist.C:
			guarded("persist", func() {
				persistLocationCache(m.cache, m.snapshots, m.dbManager)
			})
		}
	}
}

func guarded(task string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log := logger.GetLogger("maintenance")
			log.Errorf("%s panic: %v", task, r)
			log.Errorf("%s stack: %s", task, debug.Stack())
		}
	}()
	fn()
}

// warmLocationCache loads the snapshots saved by a previous run.
func warmLocationCache(cache *location.Cache, repo db.LocationSnapshotRepository) {
	log := logger.GetLogger("maintenance")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshots, err := repo.FindFresh(ctx, time.Now())
	if err != nil {
		log.Warnf("Could not read location snapshots: %v", err)
		return
	}
	log.Infof("Warmed location cache with %d of %d snapshots", cache.Warm(snapshots), len(snapshots))
}

func persistLocationCache(cache *location.Cache, repo db.LocationSnapshotRepository, dbManager *db.DBManager) {
	log := logger.GetLogger("maintenance")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snapshots, err := cache.Snapshots(location.PersistentCategories...)
	if err != nil {
		log.Warnf("Could not export location cache: %v", err)
		return
	}
	saved, err := dbManager.SaveLocationSnapshots(repo, ctx, snapshots)
	if err != nil {
		log.Warnf("Saved %d of %d location snapshots: %v", saved, len(snapshots), err)
		return
	}
	removed, err := repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		log.Warnf("Could not delete expired location snapshots: %v", err)
		return
	}
	log.Debugf("Persisted %d location snapshots, removed %d expired", saved, removed)
}
