// Package catalog loads the game and persona catalog, either from the
// built-in seeds or from a TOML file that replaces them.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/zhouzirui/game-friend/backend/internal/model/game"
	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
)

// ErrInvalidCatalog reports a catalog file that cannot be served.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the set of games and personas offered to clients.
type Catalog struct {
	Games    []game.Game       `toml:"games"`
	Personas []persona.Persona `toml:"personas"`
}

// Seed returns the built-in catalog.
func Seed() Catalog {
	return Catalog{Games: game.Seed(), Personas: persona.Seed()}
}

// Load returns the seed catalog when path is empty, otherwise the catalog
// decoded from the TOML file at path. A file that omits a section keeps the
// seed entries for it.
func Load(path string) (Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Seed(), nil
	}

	var c Catalog
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return Catalog{}, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Catalog{}, fmt.Errorf("%w: unknown keys %v", ErrInvalidCatalog, undecoded)
	}

	seed := Seed()
	if !md.IsDefined("games") {
		c.Games = seed.Games
	}
	if !md.IsDefined("personas") {
		c.Personas = seed.Personas
	}

	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate checks that every entry has a unique id and a name, and that at
// least one game is free to play.
func (c Catalog) Validate() error {
	if len(c.Games) == 0 || len(c.Personas) == 0 {
		return fmt.Errorf("%w: games and personas must not be empty", ErrInvalidCatalog)
	}

	seen := make(map[string]struct{}, len(c.Games))
	free := false
	for _, g := range c.Games {
		if err := checkEntry("game", g.ID, g.Name, seen); err != nil {
			return err
		}
		free = free || !g.IsPremium
	}
	if !free {
		return fmt.Errorf("%w: at least one game must be free", ErrInvalidCatalog)
	}

	seen = make(map[string]struct{}, len(c.Personas))
	for _, p := range c.Personas {
		if err := checkEntry("persona", p.ID, p.Name, seen); err != nil {
			return err
		}
	}
	return nil
}

func checkEntry(kind, id, name string, seen map[string]struct{}) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s entries need an id and a name", ErrInvalidCatalog, kind)
	}
	if _, dup := seen[id]; dup {
		return fmt.Errorf("%w: duplicate %s id %q", ErrInvalidCatalog, kind, id)
	}
	seen[id] = struct{}{}
	return nil
}

// GameStore returns an in-memory store over the catalog games.
func (c Catalog) GameStore() *game.MemoryStore {
	return game.NewMemoryStore(c.Games)
}

// PersonaStore returns an in-memory store over the catalog personas.
func (c Catalog) PersonaStore() *persona.MemoryStore {
	return persona.NewMemoryStore(c.Personas)
}
