package route

import "strings"

// Kind is the access class of a locale-independent path.
type Kind string

const (
	KindOther     Kind = "other"
	KindPublic    Kind = "public"
	KindAuth      Kind = "auth"
	KindProtected Kind = "protected"
)

const (
	LocaleArabic  = "ar"
	LocaleEnglish = "en"

	DefaultLocale = LocaleArabic

	RootPath      = "/"
	LoginPath     = "/auth/login"
	DashboardPath = "/dashboard"
)

var supportedLocales = []string{LocaleArabic, LocaleEnglish}

var protectedPrefixes = []string{
	"/dashboard",
	"/users",
	"/products",
	"/allergies",
}

var authPrefixes = []string{
	LoginPath,
}

// SupportedLocales returns the closed set of locales the dashboard serves.
func SupportedLocales() []string {
	out := make([]string, len(supportedLocales))
	copy(out, supportedLocales)
	return out
}

// IsSupportedLocale reports whether locale is one of the supported locales.
func IsSupportedLocale(locale string) bool {
	for _, l := range supportedLocales {
		if l == locale {
			return true
		}
	}
	return false
}

// Target is a classified request path.
type Target struct {
	// Locale is the detected locale, or DefaultLocale when none was present.
	Locale string
	// NeedsLocale is true when the path carried no supported locale prefix.
	NeedsLocale bool
	// Path is the request path with the locale prefix removed.
	Path string
	Kind Kind
}

// Resolve detects the locale of path, strips it and classifies the remainder.
func Resolve(path string) Target {
	locale, ok := DetectLocale(path)
	if !ok {
		return Target{
			Locale:      DefaultLocale,
			NeedsLocale: true,
			Path:        path,
			Kind:        Classify(path),
		}
	}
	stripped := StripLocale(path, locale)
	return Target{
		Locale: locale,
		Path:   stripped,
		Kind:   Classify(stripped),
	}
}

// DetectLocale finds a supported locale that is either the whole path
// ("/en") or its first segment ("/en/users").
func DetectLocale(path string) (string, bool) {
	for _, locale := range supportedLocales {
		prefix := "/" + locale
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return locale, true
		}
	}
	return "", false
}

// StripLocale removes the "/<locale>" prefix; an empty remainder becomes "/".
func StripLocale(path, locale string) string {
	prefix := "/" + locale
	if path != prefix && !strings.HasPrefix(path, prefix+"/") {
		return path
	}
	stripped := strings.TrimPrefix(path, prefix)
	if stripped == "" {
		return RootPath
	}
	return stripped
}

// Classify matches a locale-independent path. Protected and auth matching is
// case-sensitive prefix matching; public is exact equality with "/".
func Classify(path string) Kind {
	for _, prefix := range protectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return KindProtected
		}
	}
	for _, prefix := range authPrefixes {
		if strings.HasPrefix(path, prefix) {
			return KindAuth
		}
	}
	if path == RootPath {
		return KindPublic
	}
	return KindOther
}

// Localize prefixes a locale-independent path with locale.
func Localize(locale, path string) string {
	if path == "" || path == RootPath {
		return "/" + locale
	}
	return "/" + locale + path
}
