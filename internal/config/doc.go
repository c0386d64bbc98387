// Package config provides configuration parsing for loom servers.
//
// The configuration is stored in loom.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "addr": ":8080",
//	    "maxSessions": 1000,
//	    "readTimeout": "60s",
//	    "heartbeatInterval": "30s",
//	    "allowedOrigins": ["https://app.example.com"]
//	  },
//	  "loop": {
//	    "frameBudget": "8ms",
//	    "aging": "100ms"
//	  },
//	  "journal": {
//	    "capacity": 128,
//	    "archive": {
//	      "enabled": true,
//	      "bucket": "loom-journal",
//	      "region": "us-east-1"
//	    }
//	  },
//	  "telemetry": {
//	    "namespace": "loom",
//	    "tracing": false
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// Duration values are Go duration strings. Omitting one keeps the
// runtime default for that setting.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.ListenAddr())
package config
