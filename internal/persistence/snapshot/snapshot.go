// Package snapshot reads and writes versioned session saves. A save is
// a zstd stream holding one JSON header line followed by a gob body, so
// tooling can sniff the header without decoding the whole state.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	Magic   = "AENX-FORGE-SAVE"
	Version = 1
)

// SessionV1 is the serialized form of a player session. Fields are
// plain data so gob stays stable across refactors of the live types.
type SessionV1 struct {
	Seed string

	Tick  uint64
	Day   int
	Month int
	Year  int

	DCoin int64 // ten-thousandths
	RP    int64
	Level int
	Exp   int64

	Mana           float64
	MaxMana        float64
	ManaRegenRate  float64
	ManaEfficiency float64
	FurnaceSpeed   float64
	Heat           float64

	SlotA            SlotV1
	SlotB            SlotV1
	Run              *RunV1
	Pending          *PendingV1
	LastFailureCause string

	Inventory map[string]int64

	UnlockedRecipes     map[string]bool
	UnlockedWorkerTypes map[string]bool
	PurchasedUpgrades   map[string]bool
	RedeemedCoupons     map[string]bool

	MaxWorkerSlots int
	Workers        []WorkerV1
	WorkerSeq      int

	AdReadyTick uint64
	Draws       uint64
}

type SlotV1 struct {
	ResourceID string
	Quantity   int64
}

type RunV1 struct {
	RecipeKey      string
	OutputID       string
	Quantity       int64
	RemainingTicks int
	Success        bool
	FinalChance    float64
	FailureCause   string
}

type PendingV1 struct {
	ResourceID string
	Quantity   int64
	Success    bool
}

type WorkerV1 struct {
	ID      string
	TypeID  string
	Working bool
	Fatigue float64
	Accum   float64
}

type header struct {
	Magic     string `json:"magic"`
	Version   int    `json:"version"`
	SavedUnix int64  `json:"saved_unix"`
	Digest    string `json:"digest,omitempty"`
}

// Write stores the snapshot atomically: temp file in the same dir, then
// rename. digest is the state digest at save time and travels in the
// header for cheap integrity checks.
func Write(path string, snap *SessionV1, digest string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".save-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	zw, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return err
	}

	h := header{Magic: Magic, Version: Version, SavedUnix: time.Now().Unix(), Digest: digest}
	hb, err := json.Marshal(h)
	if err != nil {
		tmp.Close()
		return err
	}
	hb = append(hb, '\n')
	if _, err := zw.Write(hb); err != nil {
		tmp.Close()
		return err
	}

	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := zw.Write(body.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Read loads a snapshot and returns it with the digest recorded at
// save time.
func Read(path string) (*SessionV1, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, "", err
	}
	defer zr.Close()

	br := bufio.NewReader(zr)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, "", fmt.Errorf("read header: %w", err)
	}
	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, "", fmt.Errorf("decode header: %w", err)
	}
	if h.Magic != Magic {
		return nil, "", fmt.Errorf("not a save file: magic %q", h.Magic)
	}
	if h.Version != Version {
		return nil, "", fmt.Errorf("unsupported save version %d", h.Version)
	}

	var snap SessionV1
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return nil, "", fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, h.Digest, nil
}
