package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/orii-home/orii-core/internal/infrastructure/database"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "store.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	s, err := Open(db, 2*time.Second)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	return s
}

func TestStore_ReadMissingKey(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Read(context.Background(), "never-written")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestStore_WriteThenRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := []byte(`{"status":"on"}`)
	if err := s.Write(ctx, "light-seed", want); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := s.Read(ctx, "light-seed")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("Read() = %s, want %s", got, want)
	}
}

func TestStore_WriteReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Write(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Write(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("Write() replace error = %v", err)
	}

	got, err := s.Read(ctx, "k")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Read() = %s, want v2", got)
	}
}

func TestStore_UpdateMissingKey(t *testing.T) {
	s := openTestStore(t)

	err := s.Update(context.Background(), "no-such-key", []byte("v"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdateExistingKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Write(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Update(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := s.Read(ctx, "k")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Read() = %s, want v2", got)
	}
}

func TestStore_GateSerializesAccess(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Hold the gate so the next operation must wait for it.
	s.gate <- struct{}{}

	done := make(chan error, 1)
	go func() {
		done <- s.Write(ctx, "k", []byte("v"))
	}()

	// The write must not complete while the gate is held.
	select {
	case err := <-done:
		t.Fatalf("Write() completed while gate held, error = %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	<-s.gate // release

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Write() after release error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Write() never completed after gate release")
	}
}

func TestStore_BoundedWaitFailsSoft(t *testing.T) {
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "store.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	s, err := Open(db, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	s.gate <- struct{}{} // never released

	_, err = s.Read(context.Background(), "k")
	if !errors.Is(err, ErrBusy) {
		t.Errorf("Read() under contention error = %v, want ErrBusy", err)
	}
}

func TestStore_ClosedRejectsOperations(t *testing.T) {
	s := openTestStore(t)

	s.gate <- struct{}{} // force the next acquire to wait, then observe close
	s.Close()

	_, err := s.Read(context.Background(), "k")
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Read() after Close error = %v, want ErrClosed", err)
	}

	// Double close must not panic.
	s.Close()
}

func TestStore_ConcurrentCloseIsSafe(t *testing.T) {
	s := openTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()

	_, err := s.Read(context.Background(), "k")
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Read() after Close error = %v, want ErrClosed", err)
	}
}
