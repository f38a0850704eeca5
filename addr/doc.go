// Package addr classifies and normalizes socket addresses.
//
// An [Address] is one of [*Inet4], [*Inet6] or [*Other]. The first two are the
// supported families; [*Other] carries anything else (Unix-domain sockets,
// unknown tags) so that callers can hand it through unchanged. Every
// operation degrades to a documented default for [*Other], nil, and nil typed
// pointers, and never panics:
//
//	LengthFor        0
//	Port             0
//	SetPort          ErrUnsupportedFamily, address untouched
//	IsLocal          false
//	IsTemporaryIPv6  false
//	TryUnmapV4       nil, false
//
// The unsupported-family cases of LengthFor, Port and SetPort also emit a
// rate-limited warning on the default slog logger.
//
// Locality follows the usual never-routed blocks: 127.0.0.0/8 and
// 169.254.0.0/16 for IPv4; ::1 and fe80::/10 for IPv6, plus the IPv4 rules
// applied to the embedded address of ::ffff:0:0/96. Callers gathering
// outward-facing candidates drop addresses for which [IsLocal] is true.
package addr
