// Package config loads bridge.json, the configuration file shared by the
// bridge command's serve, call and listen subcommands.
//
// Every field is optional. Missing fields take the values returned by New.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "localhost",
//	    "port": 7331,
//	    "path": "/ws",
//	    "rpcPath": "/rpc",
//	    "metricsPath": "/metrics",
//	    "maxMessageSize": 1048576,
//	    "readTimeout": "60s",
//	    "writeTimeout": "10s"
//	  },
//	  "provider": {
//	    "id": "counter",
//	    "viewType": "panel",
//	    "tickInterval": "5s"
//	  },
//	  "client": { "requestTimeout": "10s" },
//	  "log": { "level": "debug", "format": "json" },
//	  "metrics": { "enabled": true, "namespace": "bridge" },
//	  "tracing": { "enabled": false }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
