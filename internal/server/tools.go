package server

import (
	"context"
	"encoding/json"
	"fmt"
)

// nameArgsSchema is the input contract shared by both tools: a single
// required string argument "name".
var nameArgsSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {"type": "string"}
	},
	"required": ["name"]
}`)

// registerTools populates the registry with the bridge's tool catalog.
// Registration happens once at construction; the set is fixed afterwards.
func (s *Server) registerTools() error {
	if err := s.registry.Register(
		"greet_pokemon_user",
		"Greet a user of the Pokemon MCP Server by name.",
		nameArgsSchema,
		func(_ context.Context, args map[string]any) (any, error) {
			name, _ := args["name"].(string)
			return fmt.Sprintf("Hello %s, Welcome to Pokemon MCP Server", name), nil
		},
	); err != nil {
		return err
	}
	return s.registry.Register(
		"get_pokemon",
		"Fetch the full PokeAPI document for a Pokemon by name.",
		nameArgsSchema,
		func(ctx context.Context, args map[string]any) (any, error) {
			name, _ := args["name"].(string)
			return s.poke.Get(ctx, name)
		},
	)
}
