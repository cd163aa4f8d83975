package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Catalogs struct {
	Resources ResourceCatalog
	Recipes   RecipeCatalog
	Workers   WorkerCatalog
	Upgrades  UpgradeCatalog
	Coupons   CouponCatalog
}

type ResourceCatalog struct {
	ByID   map[string]ResourceDef
	Digest string
}

type ResourceDef struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"` // "Raw","Product"
	BasePrice float64 `json:"base_price"`
}

func (r ResourceDef) IsProduct() bool { return r.Category == CategoryProduct }

const (
	CategoryRaw     = "Raw"
	CategoryProduct = "Product"
)

// PairKey is the canonical unordered recipe key: two resource ids with
// A <= B. Lookup is therefore symmetric in the original pair order.
type PairKey struct {
	A string
	B string
}

func KeyFor(id1, id2 string) PairKey {
	if id2 < id1 {
		id1, id2 = id2, id1
	}
	return PairKey{A: id1, B: id2}
}

func (k PairKey) String() string { return k.A + "|" + k.B }

type RecipeCatalog struct {
	ByKey  map[PairKey]RecipeDef
	Digest string
}

type RecipeDef struct {
	Inputs         [2]string `json:"inputs"`
	OutputID       string    `json:"output_id"`
	BaseChance     float64   `json:"base_chance"`
	RPCost         int       `json:"rp_cost"`
	BaseDuration   int       `json:"base_duration"`
	RequiresUnlock bool      `json:"requires_unlock,omitempty"`
	LevelUnlock    int       `json:"level_unlock,omitempty"`

	// Aiming targets. Zero values fall back to the standard curve
	// (frequency 50; pressure derived from rp_cost).
	TargetFrequency float64 `json:"target_frequency,omitempty"`
	TargetPressure  float64 `json:"target_pressure,omitempty"`
}

func (r RecipeDef) Key() PairKey { return KeyFor(r.Inputs[0], r.Inputs[1]) }

type WorkerCatalog struct {
	ByID   map[string]WorkerDef
	Digest string
}

type WorkerDef struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"` // "Worker","Machine","Contract","Mine","Facility","Syndicate"
	Tier           int     `json:"tier"`
	ResourceID     string  `json:"resource_id"`
	ProductionRate float64 `json:"production_rate"`
	Cost           float64 `json:"cost"`
	RPUnlockCost   int     `json:"rp_unlock_cost"`
	LevelUnlock    int     `json:"level_unlock"`
	Maintenance    float64 `json:"maintenance,omitempty"` // daily D-Coin; 0 = free
}

const (
	WorkerCatWorker    = "Worker"
	WorkerCatMachine   = "Machine"
	WorkerCatContract  = "Contract"
	WorkerCatMine      = "Mine"
	WorkerCatFacility  = "Facility"
	WorkerCatSyndicate = "Syndicate"
)

// Hirable blueprints cost research points; the rest are infrastructure
// purchases paid in D-Coin.
func (w WorkerDef) Hirable() bool {
	switch w.Category {
	case WorkerCatWorker, WorkerCatMachine, WorkerCatContract:
		return true
	}
	return false
}

// Unique blueprints may have at most one live instance. Only the basic
// Worker category is stackable.
func (w WorkerDef) Unique() bool { return w.Category != WorkerCatWorker }

type UpgradeCatalog struct {
	ByID   map[string]UpgradeDef
	Digest string
}

type UpgradeDef struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Kind        string        `json:"kind"` // "worker_slot" pays D-Coin, "stat" pays RP
	RPCost      int           `json:"rp_cost,omitempty"`
	CoinCost    float64       `json:"coin_cost,omitempty"`
	LevelUnlock int           `json:"level_unlock,omitempty"`
	Effect      UpgradeEffect `json:"effect"`
}

type UpgradeEffect struct {
	Stat  string  `json:"stat"` // "maxWorkerSlots","maxMana","manaRegenRate","manaEfficiency","furnaceSpeed"
	Value float64 `json:"value"`
}

const (
	UpgradeKindWorkerSlot = "worker_slot"
	UpgradeKindStat       = "stat"
)

type CouponCatalog struct {
	ByCode map[string]CouponDef
	Digest string
}

type CouponDef struct {
	Code   string  `json:"code"`
	DCoin  float64 `json:"dcoin,omitempty"`
	RP     int     `json:"rp,omitempty"`
	Unique bool    `json:"unique,omitempty"`
}

// Load reads and validates every catalog from configDir. Each file is
// checked against its JSON schema in configDir/schemas before decoding.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadResources(configDir, &c.Resources); err != nil {
		return nil, err
	}
	if err := loadRecipes(configDir, &c.Recipes); err != nil {
		return nil, err
	}
	if err := loadWorkers(configDir, &c.Workers); err != nil {
		return nil, err
	}
	if err := loadUpgrades(configDir, &c.Upgrades); err != nil {
		return nil, err
	}
	if err := loadCoupons(configDir, &c.Coupons); err != nil {
		return nil, err
	}
	if err := c.crossCheck(); err != nil {
		return nil, err
	}
	return &c, nil
}

// crossCheck verifies referential integrity between catalogs.
func (c *Catalogs) crossCheck() error {
	for key, r := range c.Recipes.ByKey {
		for _, in := range r.Inputs {
			if _, ok := c.Resources.ByID[in]; !ok {
				return fmt.Errorf("recipes.json: %s references unknown input %q", key, in)
			}
		}
		if _, ok := c.Resources.ByID[r.OutputID]; !ok {
			return fmt.Errorf("recipes.json: %s references unknown output %q", key, r.OutputID)
		}
	}
	for id, w := range c.Workers.ByID {
		if _, ok := c.Resources.ByID[w.ResourceID]; !ok {
			return fmt.Errorf("workers.json: %s produces unknown resource %q", id, w.ResourceID)
		}
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// readValidated reads a catalog file, validates it against its schema and
// returns the raw bytes plus digest.
func readValidated(configDir, name string) ([]byte, string, error) {
	path := filepath.Join(configDir, name+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	schemaPath := filepath.Join(configDir, "schemas", name+".schema.json")
	schema, err := jsonschema.Compile(schemaPath)
	if err != nil {
		return nil, "", fmt.Errorf("%s schema: %w", name, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, "", fmt.Errorf("%s.json: %w", name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, "", fmt.Errorf("%s.json: %w", name, err)
	}
	return raw, sha256Hex(raw), nil
}

func loadResources(configDir string, out *ResourceCatalog) error {
	raw, digest, err := readValidated(configDir, "resources")
	if err != nil {
		return err
	}
	out.Digest = digest

	var defs []ResourceDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("resources.json: %w", err)
	}
	out.ByID = map[string]ResourceDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("resources.json: empty id")
		}
		if d.Category != CategoryRaw && d.Category != CategoryProduct {
			return fmt.Errorf("resources.json: %s: bad category %q", d.ID, d.Category)
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("resources.json: duplicate id %s", d.ID)
		}
		out.ByID[d.ID] = d
	}
	return nil
}

func loadRecipes(configDir string, out *RecipeCatalog) error {
	raw, digest, err := readValidated(configDir, "recipes")
	if err != nil {
		return err
	}
	out.Digest = digest

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.ByKey = map[PairKey]RecipeDef{}
	for _, r := range defs {
		if r.Inputs[0] == "" || r.Inputs[1] == "" {
			return fmt.Errorf("recipes.json: empty input in pair %v", r.Inputs)
		}
		if r.OutputID == "" {
			return fmt.Errorf("recipes.json: %v: empty output_id", r.Inputs)
		}
		if r.BaseChance <= 0 || r.BaseChance > 1 {
			return fmt.Errorf("recipes.json: %v: base_chance out of (0,1]: %v", r.Inputs, r.BaseChance)
		}
		key := r.Key()
		if _, dup := out.ByKey[key]; dup {
			return fmt.Errorf("recipes.json: duplicate pair %s", key)
		}
		out.ByKey[key] = r
	}
	return nil
}

func loadWorkers(configDir string, out *WorkerCatalog) error {
	raw, digest, err := readValidated(configDir, "workers")
	if err != nil {
		return err
	}
	out.Digest = digest

	var defs []WorkerDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("workers.json: %w", err)
	}
	out.ByID = map[string]WorkerDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("workers.json: empty id")
		}
		switch d.Category {
		case WorkerCatWorker, WorkerCatMachine, WorkerCatContract, WorkerCatMine, WorkerCatFacility, WorkerCatSyndicate:
		default:
			return fmt.Errorf("workers.json: %s: bad category %q", d.ID, d.Category)
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("workers.json: duplicate id %s", d.ID)
		}
		out.ByID[d.ID] = d
	}
	return nil
}

func loadUpgrades(configDir string, out *UpgradeCatalog) error {
	raw, digest, err := readValidated(configDir, "upgrades")
	if err != nil {
		return err
	}
	out.Digest = digest

	var defs []UpgradeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("upgrades.json: %w", err)
	}
	out.ByID = map[string]UpgradeDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("upgrades.json: empty id")
		}
		if d.Kind != UpgradeKindWorkerSlot && d.Kind != UpgradeKindStat {
			return fmt.Errorf("upgrades.json: %s: bad kind %q", d.ID, d.Kind)
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("upgrades.json: duplicate id %s", d.ID)
		}
		out.ByID[d.ID] = d
	}
	return nil
}

func loadCoupons(configDir string, out *CouponCatalog) error {
	raw, digest, err := readValidated(configDir, "coupons")
	if err != nil {
		return err
	}
	out.Digest = digest

	var defs []CouponDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("coupons.json: %w", err)
	}
	out.ByCode = map[string]CouponDef{}
	for _, d := range defs {
		if d.Code == "" {
			return fmt.Errorf("coupons.json: empty code")
		}
		if _, dup := out.ByCode[d.Code]; dup {
			return fmt.Errorf("coupons.json: duplicate code %s", d.Code)
		}
		out.ByCode[d.Code] = d
	}
	return nil
}

// SortedCodes returns coupon codes in a stable order, for suggestion
// matching and deterministic iteration.
func (c CouponCatalog) SortedCodes() []string {
	codes := make([]string, 0, len(c.ByCode))
	for code := range c.ByCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// SortedProducts returns Product resource ids sorted ascending. Market
// regeneration iterates this so history order never depends on map order.
func (c ResourceCatalog) SortedProducts() []string {
	ids := make([]string, 0, len(c.ByID))
	for id, d := range c.ByID {
		if d.IsProduct() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
