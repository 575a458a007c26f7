package words

import (
	"errors"
	"sort"
)

// Catalog maps a category label to its word list.
type Catalog map[string][]string

// Picker returns a uniformly distributed integer in [0, n).
type Picker func(n int) int

var ErrEmptyCatalog = errors.New("word catalog is empty")

// Default returns a copy of the built-in catalog.
func Default() Catalog {
	catalog := make(Catalog, len(defaultWords))
	for category, list := range defaultWords {
		catalog[category] = append([]string(nil), list...)
	}
	return catalog
}

var defaultWords = map[string][]string{
	"Animais": {
		"Cachorro", "Gato", "Elefante", "Girafa", "Pinguim", "Leão",
		"Tubarão", "Águia", "Cobra", "Macaco", "Vaca", "Cavalo",
	},
	"Lugares": {
		"Praia", "Escola", "Hospital", "Cemitério", "Restaurante", "Cinema",
		"Supermercado", "Banheiro", "Biblioteca", "Academia", "Aeroporto", "Prisão",
	},
	"Objetos": {
		"Celular", "Escova de Dentes", "Garfo", "Martelo", "Violão", "Cama",
		"Espelho", "Computador", "Relógio", "Sapato", "Bola", "Guarda-Chuva",
	},
	"Comidas": {
		"Pizza", "Sushi", "Hambúrguer", "Sorvete", "Chocolate", "Ovo",
		"Pão", "Macarrão", "Salada", "Banana", "Queijo", "Bolo",
	},
	"Profissões": {
		"Médico", "Professor", "Policial", "Bombeiro", "Palhaço",
		"Astronauta", "Cozinheiro", "Motorista", "Pintor", "Advogado",
	},
}

// Categories returns the category labels in sorted order so that picks are
// reproducible for a given Picker.
func (c Catalog) Categories() []string {
	out := make([]string, 0, len(c))
	for category, list := range c {
		if len(list) == 0 {
			continue
		}
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

// Pick selects a category uniformly, then a word uniformly from it.
func (c Catalog) Pick(pick Picker) (string, string, error) {
	categories := c.Categories()
	if len(categories) == 0 {
		return "", "", ErrEmptyCatalog
	}
	category := categories[pick(len(categories))]
	list := c[category]
	return category, list[pick(len(list))], nil
}

func (c Catalog) Contains(category, word string) bool {
	for _, candidate := range c[category] {
		if candidate == word {
			return true
		}
	}
	return false
}
