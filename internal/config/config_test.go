package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/diagctl/internal/protocol/cntl"
	"github.com/danmuck/diagctl/internal/router"
	"github.com/danmuck/diagctl/internal/testutil/testlog"
)

func TestLoadTOMLDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(filepath.Join("testdata", "router.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Name != "bench-router" {
		t.Fatalf("unexpected name: %q", cfg.Name)
	}
	if !cfg.RealTime {
		t.Fatalf("expected realtime default to survive")
	}
	if cfg.BufferingMode != "circular" {
		t.Fatalf("unexpected buffering mode: %q", cfg.BufferingMode)
	}
	if cfg.MaxRoutes != 64 {
		t.Fatalf("unexpected max routes: %d", cfg.MaxRoutes)
	}
	if cfg.MaxRecordBytes != cntl.MaxRecordLen {
		t.Fatalf("unexpected max record bytes: %d", cfg.MaxRecordBytes)
	}
	if cfg.AdminAddr != "127.0.0.1:9120" {
		t.Fatalf("unexpected admin addr: %q", cfg.AdminAddr)
	}
	if len(cfg.Peripherals) != 2 || !cfg.Peripherals[0].CommandChannel || !cfg.Peripherals[1].Sockets {
		t.Fatalf("unexpected peripherals: %+v", cfg.Peripherals)
	}
	if cfg.Masks.LogStatus != "valid" || cfg.Masks.MsgStatus != "all_disabled" || cfg.Masks.EventStatus != "all_enabled" {
		t.Fatalf("unexpected mask statuses: %+v", cfg.Masks)
	}
	if len(cfg.Masks.LogEquipIDs) != 2 || len(cfg.Masks.MsgRanges) != 1 {
		t.Fatalf("unexpected mask layout: %+v", cfg.Masks)
	}
}

func TestLoadYAML(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(filepath.Join("testdata", "router.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RealTime {
		t.Fatalf("expected realtime disabled")
	}
	if cfg.BufferingMode != "streaming" {
		t.Fatalf("expected default buffering mode, got %q", cfg.BufferingMode)
	}
	if len(cfg.Peripherals) != 1 || cfg.Peripherals[0].Name != "cdsp" {
		t.Fatalf("unexpected peripherals: %+v", cfg.Peripherals)
	}
	if cfg.Masks.MsgStatus != "valid" || cfg.Masks.EventMaxBits != 16 {
		t.Fatalf("unexpected masks: %+v", cfg.Masks)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)
	_, err := Load(filepath.Join("testdata", "unknown_key.toml"))
	if err == nil || !strings.Contains(err.Error(), "max_route") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	testlog.Start(t)
	cases := map[string]func(*RouterConfig){
		"empty name":      func(c *RouterConfig) { c.Name = " " },
		"buffering mode":  func(c *RouterConfig) { c.BufferingMode = "burst" },
		"negative routes": func(c *RouterConfig) { c.MaxRoutes = -1 },
		"tiny records":    func(c *RouterConfig) { c.MaxRecordBytes = 4 },
		"peripheral name": func(c *RouterConfig) { c.Peripherals = []PeripheralEntry{{Name: ""}} },
		"duplicate peripheral": func(c *RouterConfig) {
			c.Peripherals = []PeripheralEntry{{Name: "modem"}, {Name: "modem"}}
		},
		"mask status":     func(c *RouterConfig) { c.Masks.EventStatus = "on" },
		"equip id":        func(c *RouterConfig) { c.Masks.LogEquipIDs = []int{256} },
		"inverted range":  func(c *RouterConfig) { c.Masks.MsgRanges = [][]int{{9, 3}} },
		"short range":     func(c *RouterConfig) { c.Masks.MsgRanges = [][]int{{9}} },
		"event bits":      func(c *RouterConfig) { c.Masks.EventMaxBits = -8 },
		"log item pair":   func(c *RouterConfig) { c.Masks.LogItems = [][]int{{1}} },
		"log item equip":  func(c *RouterConfig) { c.Masks.LogItems = [][]int{{300, 1}} },
		"msg level ssid": func(c *RouterConfig) {
			c.Masks.MsgRanges = [][]int{{0, 4}}
			c.Masks.MsgLevels = [][]int{{9, 1}}
		},
		"event id": func(c *RouterConfig) {
			c.Masks.EventMaxBits = 8
			c.Masks.EventIDs = []int{8}
		},
	}
	for name, mutate := range cases {
		cfg := DefaultRouterConfig()
		mutate(&cfg)
		if err := Validate(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := Validate(DefaultRouterConfig()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestRouterOptionsBuildsMaskStore(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(filepath.Join("testdata", "router.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	opts, store, err := cfg.RouterOptions(nil)
	if err != nil {
		t.Fatalf("router options: %v", err)
	}
	if opts.BufferingMode != cntl.BufferingCircular || opts.MaxRoutes != 64 || !opts.RealTime {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if store.LogMaskStatus() != cntl.MaskValid || store.EventMaskStatus() != cntl.MaskAllEnabled {
		t.Fatalf("unexpected store statuses")
	}
	if ids := store.LogEquipIDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 4 {
		t.Fatalf("unexpected equip ids: %v", ids)
	}

	r := router.New(opts)
	for _, pc := range cfg.PeripheralConfigs() {
		if _, err := r.AddPeripheral(pc); err != nil {
			t.Fatalf("add peripheral %s: %v", pc.Name, err)
		}
	}
	p, ok := r.Peripheral("modem")
	if !ok {
		t.Fatalf("expected modem peripheral")
	}
	if p.LocalFeatures()&router.FeatureReqRsp == 0 {
		t.Fatalf("expected REQ_RSP offered to a peripheral with a command channel")
	}
}

func TestTemplatesLoadAndValidate(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	for _, format := range []string{"toml", "yaml"} {
		path := filepath.Join(dir, "router."+format)
		if err := WriteTemplate(path, format, false); err != nil {
			t.Fatalf("write %s template: %v", format, err)
		}
		if err := WriteTemplate(path, format, false); err == nil {
			t.Fatalf("expected %s template to refuse overwrite", format)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("load %s template: %v", format, err)
		}
		if len(cfg.Peripherals) != 2 || len(cfg.Masks.MsgRanges) != 2 {
			t.Fatalf("unexpected %s template config: %+v", format, cfg)
		}
	}
	if _, err := Template("ini"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestEncodeRoundTripsThroughLoad(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultRouterConfig()
	cfg.Name = "encoded"
	cfg.Peripherals = []PeripheralEntry{{Name: "modem", CommandChannel: true}}
	cfg.Masks.MsgRanges = [][]int{{0, 4}}
	cfg.Masks.LogEquipIDs = []int{1}
	cfg.CorsOrigins = []string{"http://bench.local:3000"}

	dir := t.TempDir()
	for _, format := range []string{"toml", "yaml"} {
		data, err := Encode(cfg, format)
		if err != nil {
			t.Fatalf("encode %s: %v", format, err)
		}
		path := filepath.Join(dir, "effective."+format)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatalf("write %s: %v", format, err)
		}
		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("load encoded %s: %v\n%s", format, err, data)
		}
		if loaded.Name != "encoded" || len(loaded.Peripherals) != 1 || loaded.Masks.MsgRanges[0][1] != 4 ||
			len(loaded.CorsOrigins) != 1 || loaded.CorsOrigins[0] != "http://bench.local:3000" {
			t.Fatalf("unexpected %s round trip: %+v", format, loaded)
		}
	}
}

func TestMaskBitsReachPeripherals(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(filepath.Join("testdata", "mask_bits.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	opts, _, err := cfg.RouterOptions(nil)
	if err != nil {
		t.Fatalf("router options: %v", err)
	}
	r := router.New(opts)
	p, err := r.AddPeripheral(router.PeripheralConfig{Name: "modem"})
	if err != nil {
		t.Fatalf("add peripheral: %v", err)
	}
	if err := r.SendMasks(p); err != nil {
		t.Fatalf("send masks: %v", err)
	}
	out := p.Drain()
	if len(out) != 3 {
		t.Fatalf("expected log, msg and event records, got %d", len(out))
	}

	logMask, err := cntl.DecodeLogMask(out[0][cntl.HeaderLen:])
	if err != nil {
		t.Fatalf("decode log mask: %v", err)
	}
	if logMask.EquipID != 1 || logMask.LastItem != 9 || len(logMask.Mask) != 2 || logMask.Mask[0] != 0x08 || logMask.Mask[1] != 0x02 {
		t.Fatalf("unexpected log mask: %+v", logMask)
	}

	msgMask, err := cntl.DecodeMsgMask(out[1][cntl.HeaderLen:])
	if err != nil {
		t.Fatalf("decode msg mask: %v", err)
	}
	if len(msgMask.Masks) != 3 || msgMask.Masks[1] != 0x1f || msgMask.Masks[0] != 0 {
		t.Fatalf("unexpected msg mask: %+v", msgMask)
	}

	eventMask, err := cntl.DecodeEventMask(out[2][cntl.HeaderLen:])
	if err != nil {
		t.Fatalf("decode event mask: %v", err)
	}
	if len(eventMask.Mask) != 2 || eventMask.Mask[0] != 0x01 || eventMask.Mask[1] != 0x80 {
		t.Fatalf("unexpected event mask: %+v", eventMask)
	}
}
