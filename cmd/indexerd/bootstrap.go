package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/syssam/indexerd"
	"github.com/syssam/indexerd/db"
	"github.com/syssam/indexerd/manifest"
	"github.com/syssam/indexerd/schema"
)

// openDatabase opens the Database Adapter per --database and its
// per-backend connection flag (§6 CLI surface).
func openDatabase(ctx context.Context) (*db.Adapter, error) {
	switch flagDatabase {
	case "postgres":
		if flagPostgresDSN == "" {
			return nil, indexerd.NewError(indexerd.KindConfiguration, "cmd.openDatabase", "--postgres-dsn is required when --database=postgres", nil)
		}
		return db.Open(ctx, flagPostgresDSN)
	case "sqlite":
		if flagSQLitePath == "" {
			return nil, indexerd.NewError(indexerd.KindConfiguration, "cmd.openDatabase", "--sqlite-path is required when --database=sqlite", nil)
		}
		return db.Open(ctx, "sqlite://"+flagSQLitePath)
	default:
		return nil, indexerd.NewError(indexerd.KindConfiguration, "cmd.openDatabase", fmt.Sprintf("unsupported --database %q, want postgres|sqlite", flagDatabase), nil)
	}
}

// loadedManifest bundles everything derived from one manifest file: the
// parsed fields, the built Schema Model, the raw SDL source (schema.Version
// hashes this, not the re-serialized model), and the module artifact bytes.
type loadedManifest struct {
	mf          *manifest.Manifest
	model       *schema.Model
	sdlSource   string
	moduleBytes []byte
}

// loadManifestBundle reads and validates a manifest file and everything it
// references (§6 Manifest file / GraphQL schema file).
func loadManifestBundle(path string) (*loadedManifest, error) {
	mf, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}

	schemaPath := manifest.ResolvePath(path, mf.GraphQLSchema)
	sdlBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, indexerd.NewError(indexerd.KindConfiguration, "cmd.loadManifestBundle", fmt.Sprintf("reading graphql_schema %q", schemaPath), err)
	}
	sdlSource := string(sdlBytes)

	doc, err := schema.Parse(mf.Namespace+"/"+mf.Identifier, sdlSource)
	if err != nil {
		return nil, err
	}
	model, err := schema.Build(mf.Namespace, mf.Identifier, doc)
	if err != nil {
		return nil, err
	}

	var moduleBytes []byte
	switch mf.Module.Kind() {
	case "wasm":
		modPath := manifest.ResolvePath(path, mf.Module.Wasm)
		moduleBytes, err = os.ReadFile(modPath)
	case "native":
		modPath := manifest.ResolvePath(path, mf.Module.Native)
		moduleBytes, err = os.ReadFile(modPath)
	}
	if err != nil {
		return nil, indexerd.NewError(indexerd.KindConfiguration, "cmd.loadManifestBundle", "reading module artifact", err)
	}

	return &loadedManifest{mf: mf, model: model, sdlSource: sdlSource, moduleBytes: moduleBytes}, nil
}

// resolveFuelAddr picks the node address: manifest fuel_client wins, else the
// global --fuel-node-host/port flags.
func resolveFuelAddr(mf *manifest.Manifest) (string, int) {
	if mf.FuelClient != "" {
		host, portStr, err := net.SplitHostPort(mf.FuelClient)
		if err == nil {
			if port, convErr := strconv.Atoi(portStr); convErr == nil {
				return host, port
			}
		}
	}
	return flagFuelHost, flagFuelPort
}
