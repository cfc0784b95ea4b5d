// Package rewards — каталог наград и покупка за баллы.
package rewards

// Reward — позиция каталога.
type Reward struct {
	ID          string `toml:"id" json:"id"`
	Name        string `toml:"name" json:"name"`
	Description string `toml:"description" json:"description"`
	Cost        int64  `toml:"cost" json:"cost"`
}

// Catalog — содержимое файла REWARDS_FILE.
//
//	[[reward]]
//	id = "mug"
//	name = "Кружка с логотипом"
//	cost = 50
type Catalog struct {
	Rewards []Reward `toml:"reward"`
}

// DefaultCatalog — каталог, если файл не задан.
func DefaultCatalog() *Catalog {
	return &Catalog{Rewards: []Reward{
		{ID: "stickers", Name: "Набор стикеров", Description: "Стикеры с символикой команды", Cost: 10},
		{ID: "coffee", Name: "Кофе за счёт компании", Description: "Любой напиток в кофейне у офиса", Cost: 25},
		{ID: "mug", Name: "Кружка", Description: "Кружка с логотипом", Cost: 50},
		{ID: "dayoff", Name: "Дополнительный выходной", Description: "Согласуйте дату с руководителем", Cost: 100},
	}}
}
