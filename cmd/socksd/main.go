package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ealireza-student/socksd/internal/socksproxy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	testConfig := flag.Bool("t", false, "test configuration and exit")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		if *testConfig {
			fmt.Fprintf(os.Stderr, "configuration test FAILED: %v\n", err)
			os.Exit(1)
		}
		log.Fatalf("[main] %v", err)
	}

	if *testConfig {
		fmt.Printf("configuration file %s test OK\n", *configPath)
		fmt.Printf("  listeners: %d\n", len(cfg.Listeners))
		for _, l := range cfg.Listeners {
			fmt.Printf("    %s  auth=%v  chained=%v\n", l.Addr, l.Username != "", l.NextProxy != "")
		}
		os.Exit(0)
	}

	log.Printf("[main] loaded %d listener entries from %s", len(cfg.Listeners), *configPath)
	log.Printf("[main] GOMAXPROCS: %d", runtime.GOMAXPROCS(0))

	listeners := make([]*socksproxy.Listener, 0, len(cfg.Listeners))
	errCh := make(chan error, len(cfg.Listeners))

	for _, entry := range cfg.Listeners {
		opts := socksproxy.ServerOptions{
			Username:  entry.Username,
			Password:  entry.Password,
			BindAddr:  entry.BindAddr,
			NextProxy: entry.NextProxy,
		}
		ln, err := socksproxy.NewListener(entry.Addr, opts)
		if err != nil {
			log.Fatalf("[main] listen %s: %v", entry.Addr, err)
		}
		listeners = append(listeners, ln)
	}

	for i, ln := range listeners {
		entry := cfg.Listeners[i]
		ln := ln
		ln.Start()
		go func() {
			ln.Wait()
			errCh <- fmt.Errorf("listener %s: accept loop exited", entry.Addr)
		}()
	}

	log.Println("[main] ─────────────────────────────────────")
	for _, ln := range listeners {
		log.Printf("[main]   %s", ln.Addr())
	}
	log.Println("[main] ─────────────────────────────────────")
	log.Println("[main] all listeners running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("[main] received signal %s, shutting down...", sig)
	case err := <-errCh:
		log.Printf("[main] %v", err)
	}

	for _, ln := range listeners {
		ln.Close()
	}
	for _, ln := range listeners {
		ln.Wait()
	}
	log.Println("[main] shutdown complete")
}
