package httputil

import (
	"net/http"
	"time"
)

type Clients struct {
	Feeds    *http.Client // listing sources
	Registry *http.Client // public building registry
	Liveness *http.Client // HEAD checks against listing URLs
}

func NewClients() *Clients {
	return &Clients{
		Feeds: &http.Client{Timeout: 30 * time.Second},
		Registry: &http.Client{Timeout: 15 * time.Second},
		Liveness: &http.Client{
			Timeout: 15 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}
