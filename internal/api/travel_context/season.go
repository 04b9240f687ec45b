package travelContext

import "time"

// Season is one of four fixed northern-hemisphere bands.
type Season struct {
	Name        string
	Temperature string
	Clothing    string
	Tips        string
	Caution     string
}

var (
	winter = Season{
		Name:        "Inverno",
		Temperature: "frio intenso, entre -5°C e 5°C, com possibilidade de neve",
		Clothing:    "casaco pesado, gorro, luvas, cachecol e botas impermeáveis",
		Tips:        "priorize museus, teatros e atrações cobertas; pistas de patinação e vitrines de fim de ano",
		Caution:     "dias curtos (escurece por volta das 16h30) e calçadas escorregadias",
	}
	spring = Season{
		Name:        "Primavera",
		Temperature: "ameno, entre 8°C e 22°C, com variações ao longo do dia",
		Clothing:    "roupas em camadas, jaqueta leve e guarda-chuva",
		Tips:        "parques e jardins floridos, passeios a pé e cafés com mesas ao ar livre",
		Caution:     "pancadas de chuva frequentes e manhãs ainda frias",
	}
	summer = Season{
		Name:        "Verão",
		Temperature: "quente e úmido, entre 24°C e 35°C",
		Clothing:    "roupas leves, protetor solar, chapéu e garrafa de água",
		Tips:        "eventos ao ar livre, rooftops, parques à beira-rio e atividades no fim da tarde",
		Caution:     "ondas de calor e tempestades de verão; planeje pausas em locais climatizados",
	}
	autumn = Season{
		Name:        "Outono",
		Temperature: "fresco, entre 10°C e 20°C",
		Clothing:    "jaqueta média, suéter e sapatos confortáveis",
		Tips:        "folhagem colorida nos parques, feiras de rua e temporada cultural",
		Caution:     "temperatura cai rápido ao anoitecer no fim da estação",
	}
)

// SeasonFor maps a calendar month to its band: Dec-Feb, Mar-May, Jun-Aug, Sep-Nov.
func SeasonFor(m time.Month) Season {
	switch m {
	case time.March, time.April, time.May:
		return spring
	case time.June, time.July, time.August:
		return summer
	case time.September, time.October, time.November:
		return autumn
	default:
		return winter
	}
}
