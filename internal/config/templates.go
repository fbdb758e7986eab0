package config

import (
	"fmt"
	"os"
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Template returns a commented starter config in the given format.
func Template(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "toml", "":
		return tomlTemplate, nil
	case "yaml", "yml":
		return yamlTemplate, nil
	default:
		return "", fmt.Errorf("unknown config format: %s", format)
	}
}

func WriteTemplate(path, format string, overwrite bool) error {
	template, err := Template(format)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// Encode renders cfg with every field spelled out, defaults included.
func Encode(cfg RouterConfig, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "toml", "":
		return gotoml.Marshal(cfg)
	case "yaml", "yml":
		return yaml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("unknown config format: %s", format)
	}
}

const tomlTemplate = `# diag router configuration
name = "diag-router"
realtime = true
# streaming | threshold | circular
buffering_mode = "streaming"
max_routes = 4096
max_record_bytes = 16384
admin_addr = "127.0.0.1:9120"
cors_origins = ["http://localhost:3000"]

[[peripherals]]
name = "modem"
sockets = false
command_channel = true

[[peripherals]]
name = "adsp"
sockets = true
command_channel = false

[masks]
# invalid | all_disabled | all_enabled | valid
log_status = "all_disabled"
msg_status = "all_disabled"
event_status = "all_disabled"
event_max_bits = 0
log_equip_ids = []
msg_ranges = [[0, 120], [500, 506]]
# bits set when a status is "valid"
log_items = []          # [equip, item] pairs
msg_levels = []         # [ssid, levels] pairs
event_ids = []
`

const yamlTemplate = `# diag router configuration
name: diag-router
realtime: true
# streaming | threshold | circular
buffering_mode: streaming
max_routes: 4096
max_record_bytes: 16384
admin_addr: 127.0.0.1:9120
cors_origins:
  - http://localhost:3000
peripherals:
  - name: modem
    sockets: false
    command_channel: true
  - name: adsp
    sockets: true
    command_channel: false
masks:
  # invalid | all_disabled | all_enabled | valid
  log_status: all_disabled
  msg_status: all_disabled
  event_status: all_disabled
  event_max_bits: 0
  log_equip_ids: []
  msg_ranges: [[0, 120], [500, 506]]
  # bits set when a status is "valid"
  log_items: []   # [equip, item] pairs
  msg_levels: []  # [ssid, levels] pairs
  event_ids: []
`
