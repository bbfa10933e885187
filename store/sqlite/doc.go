// Package sqlite provides a SQLite-backed a2a.TaskStore for single-host
// deployments.
//
//	store, err := sqlite.NewTaskStore(sqlite.SqliteOptions{
//		Path: "./tasks.db",
//	})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	srv := a2a.NewServer(card, a2a.WithTaskStore(store))
//
// The table is created on open. Rows keep their insertion order, so List
// returns tasks oldest first even after updates.
package sqlite
