// Package device defines the backend-neutral BLE surface used to talk to a
// single peripheral: a Transport that dials an Address and the Link it
// returns for one subscribe/write/notify exchange.
//
// Backends live in sub-packages (go-ble, tinygo) and normalize their
// platform-specific errors into the ConnectionError states declared here, so
// callers can classify failures with errors.Is without knowing the backend.
package device
