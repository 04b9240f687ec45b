package travelContext

import (
	"fmt"
	"time"
)

type monthDay struct {
	month time.Month
	day   int
}

var fixedHolidays = map[monthDay]string{
	{time.January, 1}:   "Ano Novo (New Year's Day): muitos comércios e alguns museus fechados; transporte em horário de feriado",
	{time.February, 14}: "Dia dos Namorados americano (Valentine's Day): restaurantes lotados, reserve com antecedência",
	{time.March, 17}:    "St. Patrick's Day: grande desfile na 5ª Avenida pela manhã, ruas de Midtown bloqueadas",
	{time.July, 4}:      "Independence Day: fogos da Macy's à noite no East River, muitos comércios fechados e multidões",
	{time.October, 31}:  "Halloween: Village Halloween Parade na 6ª Avenida à noite, bares e ruas cheios",
	{time.November, 11}: "Veterans Day: desfile na 5ª Avenida, repartições públicas fechadas",
	{time.December, 24}: "Véspera de Natal: lojas fecham mais cedo, restaurantes com menus especiais",
	{time.December, 25}: "Natal: a maioria das atrações e museus fechados, planeje passeios ao ar livre",
	{time.December, 31}: "Réveillon: Times Square bloqueada desde a tarde para a descida da bola, evite a região",
}

var monthlyEvents = map[time.Month]string{
	time.January:   "Restaurant Week de inverno costuma ocorrer entre janeiro e fevereiro",
	time.March:     "temporada de flores começa nos jardins botânicos do Brooklyn e do Bronx",
	time.April:     "Tribeca Festival e feiras de primavera começam a movimentar a cidade",
	time.June:      "mês do Orgulho LGBTQIA+ com a Pride March no fim do mês e shows gratuitos nos parques",
	time.July:      "Shakespeare in the Park e concertos gratuitos ao ar livre no Central Park",
	time.August:    "US Open de tênis começa no fim do mês em Queens",
	time.September: "Feast of San Gennaro em Little Italy e início da temporada cultural",
	time.November:  "Macy's Thanksgiving Day Parade na quarta quinta-feira do mês; comércio fecha no feriado",
	time.December:  "árvore do Rockefeller Center, mercados de Natal em Bryant Park e Union Square e vitrines da 5ª Avenida",
}

// HolidayFor returns at most one description: an exact month+day holiday wins
// over a month-wide recurring event.
func HolidayFor(date time.Time) (string, bool) {
	if h, ok := fixedHolidays[monthDay{date.Month(), date.Day()}]; ok {
		return fmt.Sprintf("Feriado/evento do dia: %s", h), true
	}
	if e, ok := monthlyEvents[date.Month()]; ok {
		return fmt.Sprintf("Eventos do mês: %s", e), true
	}
	return "", false
}
