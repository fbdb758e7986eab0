package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/diagctl/internal/masks"
	"github.com/danmuck/diagctl/internal/protocol/cntl"
	"github.com/danmuck/diagctl/internal/router"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type RouterConfig struct {
	Name           string            `toml:"name" yaml:"name"`
	RealTime       bool              `toml:"realtime" yaml:"realtime"`
	BufferingMode  string            `toml:"buffering_mode" yaml:"buffering_mode"`
	MaxRoutes      int               `toml:"max_routes" yaml:"max_routes"`
	MaxRecordBytes int               `toml:"max_record_bytes" yaml:"max_record_bytes"`
	AdminAddr      string            `toml:"admin_addr" yaml:"admin_addr"`
	CorsOrigins    []string          `toml:"cors_origins" yaml:"cors_origins"`
	Peripherals    []PeripheralEntry `toml:"peripherals" yaml:"peripherals"`
	Masks          MaskConfig        `toml:"masks" yaml:"masks"`
}

type PeripheralEntry struct {
	Name           string `toml:"name" yaml:"name"`
	Sockets        bool   `toml:"sockets" yaml:"sockets"`
	CommandChannel bool   `toml:"command_channel" yaml:"command_channel"`
}

type MaskConfig struct {
	LogStatus    string  `toml:"log_status" yaml:"log_status"`
	MsgStatus    string  `toml:"msg_status" yaml:"msg_status"`
	EventStatus  string  `toml:"event_status" yaml:"event_status"`
	EventMaxBits int     `toml:"event_max_bits" yaml:"event_max_bits"`
	LogEquipIDs  []int   `toml:"log_equip_ids" yaml:"log_equip_ids"`
	MsgRanges    [][]int `toml:"msg_ranges" yaml:"msg_ranges"`

	// LogItems holds [equip, item] pairs to enable.
	LogItems [][]int `toml:"log_items" yaml:"log_items"`
	// MsgLevels holds [ssid, levels] pairs; ssid must fall in a msg range.
	MsgLevels [][]int `toml:"msg_levels" yaml:"msg_levels"`
	EventIDs  []int   `toml:"event_ids" yaml:"event_ids"`
}

func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Name:           "diag-router",
		RealTime:       true,
		BufferingMode:  "streaming",
		MaxRoutes:      router.DefaultMaxRoutes,
		MaxRecordBytes: cntl.MaxRecordLen,
		AdminAddr:      "127.0.0.1:9120",
		Masks: MaskConfig{
			LogStatus:   "all_disabled",
			MsgStatus:   "all_disabled",
			EventStatus: "all_disabled",
		},
	}
}

// Load reads a TOML or YAML router config, chosen by file extension, over
// the defaults and validates the result.
func Load(path string) (RouterConfig, error) {
	var (
		cfg RouterConfig
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = loadYAML(path)
	default:
		cfg, err = loadTOML(path)
	}
	if err != nil {
		return RouterConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return RouterConfig{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func loadTOML(path string) (RouterConfig, error) {
	cfg := DefaultRouterConfig()

	var raw RouterConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return RouterConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return RouterConfig{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("realtime") {
		cfg.RealTime = raw.RealTime
	}
	if meta.IsDefined("buffering_mode") {
		cfg.BufferingMode = strings.TrimSpace(raw.BufferingMode)
	}
	if meta.IsDefined("max_routes") {
		cfg.MaxRoutes = raw.MaxRoutes
	}
	if meta.IsDefined("max_record_bytes") {
		cfg.MaxRecordBytes = raw.MaxRecordBytes
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("peripherals") {
		cfg.Peripherals = raw.Peripherals
	}
	if meta.IsDefined("masks", "log_status") {
		cfg.Masks.LogStatus = raw.Masks.LogStatus
	}
	if meta.IsDefined("masks", "msg_status") {
		cfg.Masks.MsgStatus = raw.Masks.MsgStatus
	}
	if meta.IsDefined("masks", "event_status") {
		cfg.Masks.EventStatus = raw.Masks.EventStatus
	}
	if meta.IsDefined("masks", "event_max_bits") {
		cfg.Masks.EventMaxBits = raw.Masks.EventMaxBits
	}
	if meta.IsDefined("masks", "log_equip_ids") {
		cfg.Masks.LogEquipIDs = raw.Masks.LogEquipIDs
	}
	if meta.IsDefined("masks", "msg_ranges") {
		cfg.Masks.MsgRanges = raw.Masks.MsgRanges
	}
	if meta.IsDefined("masks", "log_items") {
		cfg.Masks.LogItems = raw.Masks.LogItems
	}
	if meta.IsDefined("masks", "msg_levels") {
		cfg.Masks.MsgLevels = raw.Masks.MsgLevels
	}
	if meta.IsDefined("masks", "event_ids") {
		cfg.Masks.EventIDs = raw.Masks.EventIDs
	}
	return cfg, nil
}

func loadYAML(path string) (RouterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RouterConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg := DefaultRouterConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RouterConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.AdminAddr = strings.TrimSpace(cfg.AdminAddr)
	return cfg, nil
}

func Validate(cfg RouterConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("router config missing name")
	}
	if _, err := ParseBufferingMode(cfg.BufferingMode); err != nil {
		return err
	}
	if cfg.MaxRoutes < 0 {
		return fmt.Errorf("max_routes must not be negative")
	}
	if cfg.MaxRecordBytes != 0 && cfg.MaxRecordBytes < cntl.HeaderLen {
		return fmt.Errorf("max_record_bytes must be at least %d", cntl.HeaderLen)
	}
	seen := make(map[string]struct{}, len(cfg.Peripherals))
	for i, p := range cfg.Peripherals {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("peripheral[%d] missing name", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("peripheral[%d] duplicate name %q", i, name)
		}
		seen[name] = struct{}{}
	}
	if err := validateMasks(cfg.Masks); err != nil {
		return fmt.Errorf("masks invalid: %w", err)
	}
	return nil
}

func validateMasks(m MaskConfig) error {
	for key, value := range map[string]string{
		"log_status":   m.LogStatus,
		"msg_status":   m.MsgStatus,
		"event_status": m.EventStatus,
	} {
		if _, err := ParseMaskStatus(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if m.EventMaxBits < 0 || m.EventMaxBits > 8*cntl.MaxRecordLen {
		return fmt.Errorf("event_max_bits out of range: %d", m.EventMaxBits)
	}
	for i, id := range m.LogEquipIDs {
		if id < 0 || id > 0xff {
			return fmt.Errorf("log_equip_ids[%d] out of range: %d", i, id)
		}
	}
	for i, rg := range m.MsgRanges {
		if len(rg) != 2 {
			return fmt.Errorf("msg_ranges[%d] needs [first, last]", i)
		}
		if rg[0] < 0 || rg[1] > 0xffff || rg[0] > rg[1] {
			return fmt.Errorf("msg_ranges[%d] invalid: %d-%d", i, rg[0], rg[1])
		}
	}
	for i, item := range m.LogItems {
		if len(item) != 2 {
			return fmt.Errorf("log_items[%d] needs [equip, item]", i)
		}
		if item[0] < 0 || item[0] > 0xff || item[1] < 0 || item[1] >= 8*cntl.MaxRecordLen {
			return fmt.Errorf("log_items[%d] out of range: %d/%d", i, item[0], item[1])
		}
	}
	for i, lv := range m.MsgLevels {
		if len(lv) != 2 {
			return fmt.Errorf("msg_levels[%d] needs [ssid, levels]", i)
		}
		if lv[1] < 0 || int64(lv[1]) > math.MaxUint32 {
			return fmt.Errorf("msg_levels[%d] levels out of range: %d", i, lv[1])
		}
		if !inMsgRanges(m.MsgRanges, lv[0]) {
			return fmt.Errorf("msg_levels[%d] ssid %d outside msg_ranges", i, lv[0])
		}
	}
	for i, id := range m.EventIDs {
		if id < 0 || id >= m.EventMaxBits {
			return fmt.Errorf("event_ids[%d] out of range: %d (event_max_bits %d)", i, id, m.EventMaxBits)
		}
	}
	return nil
}

func inMsgRanges(ranges [][]int, ssid int) bool {
	for _, rg := range ranges {
		if len(rg) == 2 && ssid >= rg[0] && ssid <= rg[1] {
			return true
		}
	}
	return false
}

func ParseMaskStatus(value string) (cntl.MaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "invalid":
		return cntl.MaskInvalid, nil
	case "all_disabled", "":
		return cntl.MaskAllDisabled, nil
	case "all_enabled":
		return cntl.MaskAllEnabled, nil
	case "valid":
		return cntl.MaskValid, nil
	default:
		return 0, fmt.Errorf("unknown mask status %q", value)
	}
}

func ParseBufferingMode(value string) (uint8, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "streaming", "":
		return cntl.BufferingStreaming, nil
	case "threshold":
		return cntl.BufferingThreshold, nil
	case "circular":
		return cntl.BufferingCircular, nil
	default:
		return 0, fmt.Errorf("unknown buffering_mode %q", value)
	}
}

// MaskStore builds the mask backend described by m.
func (m MaskConfig) MaskStore() (*masks.Store, error) {
	store := masks.New()
	statuses := []struct {
		value string
		set   func(cntl.MaskStatus)
	}{
		{m.LogStatus, store.SetLogStatus},
		{m.MsgStatus, store.SetMsgStatus},
		{m.EventStatus, store.SetEventStatus},
	}
	for _, s := range statuses {
		status, err := ParseMaskStatus(s.value)
		if err != nil {
			return nil, err
		}
		s.set(status)
	}
	for _, id := range m.LogEquipIDs {
		store.AddEquipID(uint8(id))
	}
	for _, rg := range m.MsgRanges {
		if len(rg) != 2 {
			return nil, fmt.Errorf("msg range needs [first, last], got %v", rg)
		}
		if err := store.AddMsgRange(cntl.SSIDRange{First: uint16(rg[0]), Last: uint16(rg[1])}); err != nil {
			return nil, err
		}
	}
	for _, item := range m.LogItems {
		if len(item) != 2 {
			return nil, fmt.Errorf("log item needs [equip, item], got %v", item)
		}
		store.EnableLogItem(uint8(item[0]), uint32(item[1]))
	}
	for _, lv := range m.MsgLevels {
		if len(lv) != 2 {
			return nil, fmt.Errorf("msg levels need [ssid, levels], got %v", lv)
		}
		if err := store.SetMsgLevels(uint16(lv[0]), uint32(lv[1])); err != nil {
			return nil, err
		}
	}
	store.SetEventMaxBits(m.EventMaxBits)
	for _, id := range m.EventIDs {
		if err := store.EnableEvent(id); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// RouterOptions turns cfg into router options backed by a fresh mask store.
func (cfg RouterConfig) RouterOptions(logger *zerolog.Logger) (router.Options, *masks.Store, error) {
	mode, err := ParseBufferingMode(cfg.BufferingMode)
	if err != nil {
		return router.Options{}, nil, err
	}
	store, err := cfg.Masks.MaskStore()
	if err != nil {
		return router.Options{}, nil, err
	}
	return router.Options{
		Logger:        logger,
		Masks:         store,
		RealTime:      cfg.RealTime,
		BufferingMode: mode,
		MaxRoutes:     cfg.MaxRoutes,
		MaxRecordLen:  cfg.MaxRecordBytes,
	}, store, nil
}

// PeripheralConfigs lists the configured peripherals in file order.
func (cfg RouterConfig) PeripheralConfigs() []router.PeripheralConfig {
	out := make([]router.PeripheralConfig, 0, len(cfg.Peripherals))
	for _, p := range cfg.Peripherals {
		out = append(out, router.PeripheralConfig{
			Name:           strings.TrimSpace(p.Name),
			Sockets:        p.Sockets,
			CommandChannel: p.CommandChannel,
		})
	}
	return out
}
