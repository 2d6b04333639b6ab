// Package pebblestore is the shared Pebble wrapper underneath
// internal/journal/pebblejournal and internal/lock's Leased provider:
// fsync policy, snapshots, batches, and minimal metrics hooks, with no
// knowledge of what the keys and values it stores actually mean.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: filepath.Join(dataDir, "journal"),
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	// A journal transaction or a lease acquisition is one batch.
//	b := db.NewBatch()
//	_ = b.Set([]byte("k"), []byte("v"), nil)
//	_ = db.CommitBatch(context.Background(), b)
//	b.Close()
package pebblestore
