package heartbeat

import "net/url"

const keyPlaceholder = "XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXX"

// ObfuscateKey hides all but the last four characters of key. Keys of four
// characters or fewer are returned as is.
func ObfuscateKey(key string) string {
	if len(key) <= 4 {
		return key
	}
	return keyPlaceholder + key[len(key)-4:]
}

// RedactArgs returns a copy of argv that is safe to log: the value after
// --key is obfuscated and proxy passwords are masked.
func RedactArgs(argv []string) []string {
	out := make([]string, len(argv))
	prev := ""
	for i, arg := range argv {
		switch prev {
		case "--key":
			out[i] = ObfuscateKey(arg)
		case "--proxy":
			out[i] = RedactURL(arg)
		default:
			out[i] = arg
		}
		prev = arg
	}
	return out
}

// RedactURL masks the password of raw if it parses as a URL with one.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
