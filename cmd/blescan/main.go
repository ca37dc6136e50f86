// Command blescan lists the addresses of BLE peripherals advertising a
// given name, for use as sink.ble_address.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"handosc/blemanager"
	"handosc/logging"
	"handosc/util"
)

func main() {
	name := flag.String("name", "HandOSC", "advertised local name to look for")
	timeout := flag.Duration("timeout", 10*time.Second, "how long to scan")
	verbose := flag.Bool("v", false, "log every peripheral seen")
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logger := logging.Setup(level, "text")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var mu sync.Mutex
	seen := map[string]bool{}
	err := blemanager.ScanDevice(ctx, *name, *timeout, logger, func(addr string) {
		mu.Lock()
		defer mu.Unlock()
		if seen[addr] {
			return
		}
		seen[addr] = true
		fmt.Printf("%s\t%s\n", addr, util.NormalizeDeviceID(addr))
	})
	if err != nil {
		logger.Error("scan failed", "error", err)
		os.Exit(1)
	}
	if len(seen) == 0 {
		logger.Warn("device not found", "name", *name)
		os.Exit(1)
	}
}
