// Package config loads skiff project configuration.
//
// A project carries two JSON files:
//
//   - skiff.json: bundler, dev-server, bytecode, and export settings.
//     This is the file the orchestration layer owns.
//   - app.json: the application manifest. skiff only reads the fields
//     it needs (name, declared JavaScript engine, per-platform engine
//     overrides); the rest of the schema belongs to the app toolchain.
//
// Both loaders apply defaults after parsing, so callers never see
// zero values for fields that have a documented default.
package config
