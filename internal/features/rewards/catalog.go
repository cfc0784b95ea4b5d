package rewards

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// LoadCatalog читает каталог из TOML-файла. Пустой путь — DefaultCatalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	var c Catalog
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("не удалось прочитать каталог наград %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("каталог наград %s: %w", path, err)
	}
	return &c, nil
}

// Validate проверяет, что у наград есть уникальный id, имя и цена > 0.
func (c *Catalog) Validate() error {
	if len(c.Rewards) == 0 {
		return fmt.Errorf("каталог пуст")
	}
	seen := make(map[string]bool)
	for i, r := range c.Rewards {
		id := strings.ToLower(strings.TrimSpace(r.ID))
		switch {
		case id == "":
			return fmt.Errorf("награда #%d: не указан id", i+1)
		case seen[id]:
			return fmt.Errorf("награда %q встречается дважды", r.ID)
		case r.Name == "":
			return fmt.Errorf("награда %q: не указано название", r.ID)
		case r.Cost <= 0:
			return fmt.Errorf("награда %q: цена должна быть > 0", r.ID)
		}
		seen[id] = true
	}
	return nil
}

// Find ищет награду по id без учёта регистра.
func (c *Catalog) Find(id string) (Reward, bool) {
	id = strings.TrimSpace(id)
	for _, r := range c.Rewards {
		if strings.EqualFold(r.ID, id) {
			return r, true
		}
	}
	return Reward{}, false
}
