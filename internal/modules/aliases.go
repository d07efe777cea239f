package modules

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// AliasTable maps a canonical module code to the historical and localized
// spellings that must satisfy a capability check for it.
type AliasTable map[string][]string

// DefaultAliases is the built-in table. Never add a bare prefix of an existing
// code (e.g. "order") as an alias: matching is prefix-with-separator.
var DefaultAliases = AliasTable{
	"dashboard": {"dashboard", "painel"},
	"orders":    {"orders", "pedidos"},
	"customers": {"customers", "clientes"},
	"finance":   {"finance", "financeiro"},
	"reports":   {"reports", "relatorios"},
	"inventory": {"inventory", "estoque"},
	"schedule":  {"schedule", "agenda", "agendamentos"},
	"users":     {"users", "usuarios", "equipe"},
	"pdv":       {"pdv", "pos", "caixa"},
	"delivery":  {"delivery", "entregas"},
	"settings":  {"settings", "configuracoes"},
	"support":   {"support", "suporte", "tickets"},
}

// Normalize lower-cases and trims a module code.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Candidates returns every spelling a query for code may match. A code that is
// neither a canonical key nor a known alias resolves to itself.
func (t AliasTable) Candidates(code string) []string {
	code = Normalize(code)
	if code == "" {
		return nil
	}
	if aliases, ok := t[code]; ok {
		return entry(code, aliases)
	}
	for canon, aliases := range t {
		for _, a := range aliases {
			if Normalize(a) == code {
				return entry(canon, aliases)
			}
		}
	}
	return []string{code}
}

func entry(canon string, aliases []string) []string {
	seen := map[string]struct{}{canon: {}}
	out := []string{canon}
	for _, a := range aliases {
		a = Normalize(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// Match reports whether a stored code satisfies a queried alias: equal, or the
// stored code extends the alias after a "_" or "-" separator (regional variants).
func Match(stored, alias string) bool {
	stored, alias = Normalize(stored), Normalize(alias)
	if stored == "" || alias == "" {
		return false
	}
	return stored == alias ||
		strings.HasPrefix(stored, alias+"_") ||
		strings.HasPrefix(stored, alias+"-")
}

// ErrAmbiguousAlias is returned when one spelling would resolve to two
// canonical codes.
var ErrAmbiguousAlias = errors.New("modules: ambiguous alias")

// Merge returns a copy of t with other's spellings added per canonical code.
// The result is validated so reverse lookups stay deterministic.
func (t AliasTable) Merge(other AliasTable) (AliasTable, error) {
	out := make(AliasTable, len(t)+len(other))
	for k, v := range t {
		out[Normalize(k)] = append([]string(nil), v...)
	}
	for k, v := range other {
		k = Normalize(k)
		if k == "" {
			continue
		}
		out[k] = entry(k, append(out[k], v...))
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks that every spelling, canonical codes included, belongs to
// exactly one canonical code.
func (t AliasTable) Validate() error {
	owner := make(map[string]string, len(t))
	for _, canon := range t.Codes() {
		for _, a := range entry(Normalize(canon), t[canon]) {
			if prev, ok := owner[a]; ok && prev != canon {
				return fmt.Errorf("%w: %q listed under %q and %q", ErrAmbiguousAlias, a, prev, canon)
			}
			owner[a] = canon
		}
	}
	return nil
}

// Codes lists the canonical codes in sorted order.
func (t AliasTable) Codes() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type aliasFile struct {
	Aliases AliasTable `yaml:"aliases"`
}

// LoadAliasTable reads a YAML alias file and merges it over DefaultAliases.
//
//	aliases:
//	  orders: [pedidos, encomendas]
func LoadAliasTable(path string) (AliasTable, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultAliases, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("modules: read alias table: %w", err)
	}
	var f aliasFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("modules: parse alias table: %w", err)
	}
	table, err := DefaultAliases.Merge(f.Aliases)
	if err != nil {
		return nil, fmt.Errorf("modules: alias table %s: %w", path, err)
	}
	return table, nil
}
