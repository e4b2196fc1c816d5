package client

import (
	"net/url"
	"strings"
)

const (
	DefaultAPIURL     = "http://localhost:8001/api"
	DefaultBackendURL = "http://localhost:8001"
)

// BackendOrigin derives the backend origin from the API base URL by dropping
// a trailing /api segment.
func BackendOrigin(apiURL string) string {
	if apiURL == "" {
		return DefaultBackendURL
	}
	u, err := url.Parse(apiURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimSuffix(trimAPISuffix(apiURL), "/")
	}
	u.Path = trimAPISuffix(u.Path)
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

func trimAPISuffix(p string) string {
	p = strings.TrimSuffix(p, "/")
	return strings.TrimSuffix(p, "/api")
}

// StorageURL returns the absolute URL of a file the backend serves from its
// public storage. Absolute http(s) paths are returned unchanged.
func StorageURL(backendURL, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	return strings.TrimSuffix(backendURL, "/") + "/storage/" + strings.TrimPrefix(path, "/")
}
