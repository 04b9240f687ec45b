package travelContext

import (
	"fmt"
	"strings"
)

type LocaleMatchKind string

const (
	LocaleNeighborhoodExact     LocaleMatchKind = "neighborhood_exact"
	LocaleNeighborhoodSubstring LocaleMatchKind = "neighborhood_substring"
	LocaleBorough               LocaleMatchKind = "borough"
	LocaleFallback              LocaleMatchKind = "fallback"
)

type LocaleMatch struct {
	Kind        LocaleMatchKind
	Key         string
	Description string
}

type localeEntry struct {
	key         string
	description string
}

// neighborhoods is ordered so substring matching is deterministic; longer, more
// specific names come before names they contain.
var neighborhoods = []localeEntry{
	{"times square", "Times Square (Midtown): centro dos teatros da Broadway, telões e grandes lojas; muito cheio à noite. Próximo a Bryant Park, Rockefeller Center e Hell's Kitchen para comer melhor e mais barato."},
	{"hell's kitchen", "Hell's Kitchen: bairro gastronômico a oeste da Broadway, ótimo para jantar antes ou depois do teatro (9th Avenue)."},
	{"midtown", "Midtown: arranha-céus, Empire State, Grand Central, Rockefeller Center e MoMA; deslocamentos curtos a pé entre as atrações."},
	{"upper east side", "Upper East Side: Museum Mile (Met, Guggenheim, Neue Galerie), lado leste do Central Park, bairro residencial elegante."},
	{"upper west side", "Upper West Side: American Museum of Natural History, Lincoln Center, lado oeste do Central Park e Riverside Park."},
	{"central park", "Central Park: 340 hectares entre a 59th e a 110th Street; Bethesda Terrace, Strawberry Fields, Belvedere Castle e The Mall."},
	{"harlem", "Harlem: jazz, soul food, Apollo Theater, igrejas com missa gospel aos domingos e a 125th Street."},
	{"soho", "SoHo: ruas de paralelepípedo, prédios de ferro fundido, lojas de marca e galerias; próximo a Nolita e Little Italy."},
	{"nolita", "Nolita: cafés pequenos, butiques independentes e restaurantes charmosos entre SoHo e Little Italy."},
	{"little italy", "Little Italy: Mulberry Street com cantinas italianas, vizinha de Chinatown e Nolita."},
	{"chinatown", "Chinatown: dim sum, mercados, Canal Street; combina bem com Little Italy e Lower East Side."},
	{"lower east side", "Lower East Side: Tenement Museum, Katz's Delicatessen, bares e galerias independentes."},
	{"east village", "East Village: St. Marks Place, bares, restaurantes de várias cozinhas e Tompkins Square Park."},
	{"greenwich village", "Greenwich Village: Washington Square Park, clubes de jazz e comédia, ruas arborizadas e cafés."},
	{"west village", "West Village: ruas tranquilas, brunch, Bleecker Street e proximidade com o Hudson River Park."},
	{"chelsea", "Chelsea: High Line, Chelsea Market, galerias de arte e Hudson Yards ao norte."},
	{"meatpacking", "Meatpacking District: início da High Line, Whitney Museum, restaurantes e vida noturna."},
	{"flatiron", "Flatiron: Flatiron Building, Madison Square Park, Eataly e Union Square próxima."},
	{"tribeca", "Tribeca: restaurantes premiados, ruas de armazéns reformados e o Hudson River Park."},
	{"financial district", "Financial District: Wall Street, 9/11 Memorial & Museum, One World Observatory e balsa para a Estátua da Liberdade."},
	{"battery park", "Battery Park: embarque para a Estátua da Liberdade e Ellis Island, vista do porto."},
	{"brooklyn heights", "Brooklyn Heights: Promenade com vista de Manhattan, casas históricas; desça até o Brooklyn Bridge Park."},
	{"dumbo", "DUMBO: vista icônica da Manhattan Bridge, Brooklyn Bridge Park, Time Out Market e Jane's Carousel."},
	{"williamsburg", "Williamsburg: cena criativa, brechós, cervejarias, Smorgasburg aos fins de semana e Domino Park."},
	{"bushwick", "Bushwick: murais de arte de rua (Bushwick Collective), bares e pizzarias descoladas."},
	{"park slope", "Park Slope: Prospect Park, Brooklyn Museum e Jardim Botânico próximos; brownstones e cafés."},
	{"coney island", "Coney Island: calçadão, praia, Luna Park e o Nathan's original; ideal no verão."},
	{"astoria", "Astoria: culinária grega e internacional, Museum of the Moving Image e Astoria Park."},
	{"long island city", "Long Island City: MoMA PS1, Gantry Plaza com vista do skyline e rooftops."},
	{"flushing", "Flushing: maior Chinatown da cidade, food courts asiáticos e Flushing Meadows (US Open)."},
}

var boroughs = []localeEntry{
	{"manhattan", "Manhattan: ilha central, a maior parte das atrações clássicas; metrô e caminhadas resolvem quase tudo."},
	{"brooklyn", "Brooklyn: bairros com identidade própria (DUMBO, Williamsburg, Park Slope); considere metrô entre eles."},
	{"queens", "Queens: o borough mais diverso, forte em gastronomia étnica; distâncias maiores, planeje o metrô."},
	{"bronx", "Bronx: Yankee Stadium, Bronx Zoo, Jardim Botânico e Arthur Avenue (Little Italy do Bronx)."},
	{"staten island", "Staten Island: balsa gratuita com vista da Estátua da Liberdade; atrações espalhadas."},
}

// LocaleContextFor resolves region against, in order: exact neighborhood,
// neighborhood contained in the input, exact borough, and a generic fallback
// treating the input as an arbitrary point of interest.
func LocaleContextFor(region string) LocaleMatch {
	q := strings.ToLower(strings.TrimSpace(region))
	if q != "" {
		for _, n := range neighborhoods {
			if q == n.key {
				return LocaleMatch{Kind: LocaleNeighborhoodExact, Key: n.key, Description: n.description}
			}
		}
		for _, n := range neighborhoods {
			if strings.Contains(q, n.key) {
				return LocaleMatch{Kind: LocaleNeighborhoodSubstring, Key: n.key, Description: n.description}
			}
		}
		for _, b := range boroughs {
			if q == b.key {
				return LocaleMatch{Kind: LocaleBorough, Key: b.key, Description: b.description}
			}
		}
	}
	return LocaleMatch{
		Kind: LocaleFallback,
		Description: fmt.Sprintf(
			"Local informado: %q. Trate-o como um ponto de interesse específico (endereço, restaurante ou atração), "+
				"identifique onde fica e priorize sugestões a no máximo 10-15 minutos a pé dele.", strings.TrimSpace(region)),
	}
}
