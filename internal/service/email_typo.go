package service

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

var commonEmailDomains = []string{
	"gmail.com",
	"yahoo.com",
	"outlook.com",
	"icloud.com",
	"hotmail.com",
	"aol.com",
	"protonmail.com",
	"live.com",
}

const defaultTypoDistance = 2

// EmailTypoChecker sugiere una direccion corregida cuando el dominio parece un error de tipeo.
type EmailTypoChecker interface {
	Suggest(email string) (string, bool)
}

type DomainTypoChecker struct {
	domains     []string
	maxDistance int
}

func NewDomainTypoChecker(domains []string, maxDistance int) *DomainTypoChecker {
	if len(domains) == 0 {
		domains = commonEmailDomains
	}
	if maxDistance <= 0 {
		maxDistance = defaultTypoDistance
	}
	return &DomainTypoChecker{domains: domains, maxDistance: maxDistance}
}

// Suggest compara el dominio contra la lista por distancia de edicion.
// Un dominio conocido nunca produce sugerencia; en empate gana el primero de la lista.
func (c *DomainTypoChecker) Suggest(email string) (string, bool) {
	if strings.Count(email, "@") != 1 {
		return "", false
	}
	at := strings.IndexByte(email, '@')
	local, domain := email[:at], strings.ToLower(strings.TrimSpace(email[at+1:]))
	if local == "" || domain == "" {
		return "", false
	}

	best, bestDist := "", -1
	for _, candidate := range c.domains {
		if domain == candidate {
			return "", false
		}
		d := levenshtein.ComputeDistance(domain, candidate)
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if bestDist <= 0 || bestDist > c.maxDistance {
		return "", false
	}
	return local + "@" + best, true
}
