// Package config loads the vibe-setup configuration.
//
// The configuration is a YAML file found at --config, $VIBE_SETUP_CONFIG or
// ./vibe-setup.yaml, in that order. A missing file yields DefaultConfig.
// Values from the file are overlaid on the defaults, then environment
// variables are overlaid on the file:
//
//	VIBE_STATE_FILE     state_file
//	VIBE_BACKEND_DIR    backend_dir
//	VIBE_HISTORY_PATH   history.path
//	VIBE_ENVIRONMENT    answers.environment
//	VIBE_SETUP_TYPE     answers.setup_type
//	VIBE_MONGO_URI      answers.mongo_uri
//	LOG_LEVEL           telemetry.logging.level
//	NO_INTERACTION, CI  non_interactive
//
// The result is validated with go-playground/validator struct tags. Command
// lines are checked to split cleanly with shell quoting rules, and the
// MongoDB URI must use the mongodb:// or mongodb+srv:// scheme.
//
// # Example
//
//	state_file: .vibe_setup_state.json
//	backend_dir: backend
//	answers:
//	  environment: Development
//	  setup_type: Backend
//	commands:
//	  test: pnpm run test:ci
//	history:
//	  enabled: true
//	  path: .vibe_setup_history.db
package config
