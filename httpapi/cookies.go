package httpapi

import (
	"net/http"
	"time"
)

type cookiePolicy struct {
	secure bool
	domain string
}

func (p cookiePolicy) set(w http.ResponseWriter, name, value string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   p.domain,
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (p cookiePolicy) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   p.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (p cookiePolicy) setPair(w http.ResponseWriter, access string, accessExp time.Time, refresh string, refreshExp time.Time) {
	p.set(w, accessCookieName, access, accessExp)
	p.set(w, refreshCookieName, refresh, refreshExp)
}

func (p cookiePolicy) clearPair(w http.ResponseWriter) {
	p.clear(w, accessCookieName)
	p.clear(w, refreshCookieName)
}
