// Package config loads the berth daemon configuration from YAML.
//
// A file only needs the settings it changes; everything else keeps the value
// from Default. Durations use Go syntax ("30s", "5m").
//
//	log:
//	  level: debug
//	server:
//	  addr: 0.0.0.0:7070
//	storage:
//	  backend: etcd
//	  etcdEndpoints: [10.0.0.5:2379]
//	policy:
//	  strategy: round-robin
//	  maxInstancesPerNode: 12
//	  affinityRules:
//	    - service: perform
//	      nodeId: gpu-1
//	      reason: needs the GPU host
package config
