package utils

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"

	"sdp-backend/internal/apperr"
)

// JSON writes data with the given status
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[HTTP] Failed to encode response: %v", err)
		}
	}
}

// OK writes {ok:true} merged with fields
func OK(w http.ResponseWriter, status int, fields map[string]interface{}) {
	body := map[string]interface{}{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	JSON(w, status, body)
}

// Failure writes the {ok:false, code, message} envelope
func Failure(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, map[string]interface{}{
		"ok":      false,
		"code":    code,
		"message": message,
	})
}

// WriteError maps err to its caller-visible form. Unknown errors are logged
// and reported as INTERNAL_ERROR.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	p, known := apperr.Describe(err)
	if !known {
		log.Printf("[HTTP] %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	Failure(w, p.Status, p.Code, p.Message)
}

var (
	proxyMu        sync.RWMutex
	trustedProxies []*net.IPNet
)

// SetTrustedProxies lists the peers (IPs or CIDRs) whose X-Forwarded-For and
// X-Real-IP headers are believed. With none configured the headers are ignored.
func SetTrustedProxies(entries []string) error {
	nets := make([]*net.IPNet, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				return fmt.Errorf("invalid trusted proxy %q", e)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			return fmt.Errorf("invalid trusted proxy %q: %w", e, err)
		}
		nets = append(nets, n)
	}

	proxyMu.Lock()
	trustedProxies = nets
	proxyMu.Unlock()
	return nil
}

func isTrustedProxy(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	proxyMu.RLock()
	defer proxyMu.RUnlock()
	for _, n := range trustedProxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the caller address. Proxy headers count only when the
// direct peer is a trusted proxy; X-Forwarded-For is then read right to left
// and the first hop that is not itself a trusted proxy wins.
func ClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !isTrustedProxy(peer) {
		return peer
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				break
			}
			if !isTrustedProxy(hop) {
				return hop
			}
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
		return realIP
	}
	return peer
}

// WantsHTML reports whether the caller is a browser navigating to a page
func WantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
