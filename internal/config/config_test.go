package config

import (
	"os"
	"path/filepath"
	"testing"

	"arbengine/internal/models"
)

func TestLoadDefaultsWithNoPairsFile(t *testing.T) {
	t.Setenv("ENGINE_PAIRS_FILE", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Pairs) != 0 {
		t.Fatalf("expected no pairs, got %d", len(cfg.Pairs))
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("expected default driver postgres, got %s", cfg.Database.Driver)
	}
}

func TestLoadReadsPairsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.json")
	body := `{"pairs":[{"sym_v1":"BTC-PERP","sym_v2":"BTC-PERP","venue1":"V1","venue2":"V2",
		"min_spread":0.4,"spread_tp":0.2,"min_hits":3,"max_position_value":5000,
		"max_of_ob":0.3,"dedup_ob":true,"slippage":0.04}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	t.Setenv("ENGINE_PAIRS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(cfg.Pairs))
	}
	if cfg.Pairs[0].MinHits != 3 {
		t.Fatalf("expected min_hits=3, got %d", cfg.Pairs[0].MinHits)
	}
}

func TestValidatePairRejectsSameVenue(t *testing.T) {
	p := models.PairConfig{SymV1: "BTC-PERP", SymV2: "ETH-PERP", Venue1: models.VenueV1, Venue2: models.VenueV1, MinHits: 3, MinSpread: 0.1, SpreadTP: 0.1, MaxOfOB: 0.3}
	if err := ValidatePair(p); err == nil {
		t.Fatal("expected error for identical venues")
	}
}

func TestValidatePairRejectsBadMinHits(t *testing.T) {
	p := models.PairConfig{SymV1: "BTC-PERP", SymV2: "ETH-PERP", Venue1: models.VenueV1, Venue2: models.VenueV2, MinHits: 0, MinSpread: 0.1, SpreadTP: 0.1, MaxOfOB: 0.3}
	if err := ValidatePair(p); err == nil {
		t.Fatal("expected error for min_hits=0")
	}
}

func TestValidatePairRejectsBadSymbol(t *testing.T) {
	p := models.PairConfig{SymV1: "$$$", SymV2: "ETH-PERP", Venue1: models.VenueV1, Venue2: models.VenueV2, MinHits: 3, MinSpread: 0.1, SpreadTP: 0.1, MaxOfOB: 0.3}
	if err := ValidatePair(p); err == nil {
		t.Fatal("expected error for malformed symbol")
	}
}

func TestValidatePairAcceptsWellFormed(t *testing.T) {
	p := models.PairConfig{SymV1: "BTC-PERP", SymV2: "ETH-PERP", Venue1: models.VenueV1, Venue2: models.VenueV2, MinHits: 3, MinSpread: 0.4, SpreadTP: 0.2, MaxOfOB: 0.3, Slippage: 0.04}
	if err := ValidatePair(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
