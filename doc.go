// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

// Package opcua is a smart-client layer over OPC UA servers for
// industrial automation projects.
//
// Instead of protocol node identifiers, nodes are addressed by dotted
// display-name paths anchored at a configurable target object, for
// example "Station_2.Pump_1.speed". Values read from the server are
// decoded into structured records using the server's own type metadata
// (bitmask enumerations, structure fields, arrays of records), and
// values written are converted to the declared type of the destination
// node. Type metadata discovered along the way is held in a bounded
// per-session LRU cache so repeated operations avoid re-browsing the
// address space.
//
// Basic usage:
//
//	client, err := opcua.NewClient("opc.tcp://192.168.1.10:4840")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = client.WithConnection(ctx, func(ctx context.Context) error {
//	    res, err := client.Read(ctx, "Pump_1.speed")
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(res.JSON())
//
//	    _, err = client.Write(ctx, map[string]any{
//	        "Pump_1.speed":   1500,
//	        "Pump_1.enabled": true,
//	    })
//	    return err
//	})
//
// The client never retries on its own; every operation makes exactly
// one attempt and reports what happened.
package opcua
