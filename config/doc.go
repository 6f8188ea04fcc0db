// Package config loads the device agent configuration.
//
// Values are layered in this order, later layers winning:
//
//  1. Defaults()
//  2. a YAML file, with ${VAR} references expanded from the environment
//  3. DEVICE_* environment variables (a .env file is loaded first if present)
//
// The result is validated before it is returned. Conversion helpers map each
// section onto the constructor input of the package it configures.
package config
