// Package config provides the configuration of mediasniff: defaults,
// validation of CLI options, and the YAML config file holding the MyNest
// connection, streaming platform host patterns and per-site request
// headers.
package config
