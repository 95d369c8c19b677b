// Package file loads driveindex configuration from disk.
//
// Adapters:
//   - ConfigStore: TOML file read into dot-notation keys
//   - Config: typed configuration with environment overrides and .env support
//   - PromptStore: user-editable analyzer prompts
package file
