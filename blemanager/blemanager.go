// Package blemanager writes bridge messages to a BLE peripheral.
package blemanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

var adapter = bluetooth.DefaultAdapter

const (
	serviceUUIDStr        = "0000ab00-0000-1000-8000-00805f9b34fb"
	characteristicUUIDStr = "0000ab01-0000-1000-8000-00805f9b34fb"

	writeTimeout = 1 * time.Second
)

var ErrNotReady = errors.New("ble device not ready")

// BLEManager encapsulates one BLE device connection.
type BLEManager struct {
	device bluetooth.Device
	char   *bluetooth.DeviceCharacteristic
	ready  bool
	mu     sync.Mutex
}

// New enables the adapter and returns an unconnected manager.
func New() (*BLEManager, error) {
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable ble adapter: %w", err)
	}
	return &BLEManager{}, nil
}

// ScanDevice reports every peripheral advertising deviceName until timeout
// or ctx ends. It blocks.
func ScanDevice(ctx context.Context, deviceName string, timeout time.Duration, logger *slog.Logger, onFound func(addr string)) error {
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("enable ble adapter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	go func() {
		<-ctx.Done()
		adapter.StopScan()
	}()

	logger.Info("scanning", "name", deviceName, "timeout", timeout)
	err := adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		logger.Debug("found peripheral", "name", result.LocalName(), "addr", result.Address.String())
		if result.LocalName() == deviceName {
			onFound(result.Address.String())
		}
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	logger.Info("scan finished")
	return nil
}

// ConnectDevice connects to a specific device by its Bluetooth address and
// looks up the write characteristic.
func (b *BLEManager) ConnectDevice(addr string) error {
	var address bluetooth.Address
	address.Set(addr)

	device, err := adapter.Connect(address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	services, err := device.DiscoverServices(nil)
	if err != nil {
		device.Disconnect()
		return fmt.Errorf("failed to discover services: %w", err)
	}

	var targetService *bluetooth.DeviceService
	for i := range services {
		if services[i].UUID().String() == serviceUUIDStr {
			targetService = &services[i]
			break
		}
	}
	if targetService == nil {
		device.Disconnect()
		return fmt.Errorf("service %s not found", serviceUUIDStr)
	}

	chars, err := targetService.DiscoverCharacteristics(nil)
	if err != nil {
		device.Disconnect()
		return fmt.Errorf("failed to discover characteristics: %w", err)
	}

	var targetChar *bluetooth.DeviceCharacteristic
	for i := range chars {
		if chars[i].UUID().String() == characteristicUUIDStr {
			targetChar = &chars[i]
			break
		}
	}
	if targetChar == nil {
		device.Disconnect()
		return fmt.Errorf("characteristic %s not found", characteristicUUIDStr)
	}

	b.mu.Lock()
	b.device = device
	b.char = targetChar
	b.ready = true
	b.mu.Unlock()
	return nil
}

// Send writes data to the characteristic. A failed or slow write marks the
// connection as lost.
func (b *BLEManager) Send(data string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready || b.char == nil {
		return ErrNotReady
	}

	done := make(chan error, 1)
	char := b.char
	go func() {
		_, err := char.Write([]byte(data))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			b.ready = false
			return fmt.Errorf("ble write: %w", err)
		}
		return nil
	case <-time.After(writeTimeout):
		b.ready = false
		return fmt.Errorf("ble write: timeout after %v", writeTimeout)
	}
}

// Disconnect safely disconnects from the device.
func (b *BLEManager) Disconnect() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		b.device.Disconnect()
		b.ready = false
	}
}

func (b *BLEManager) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}
