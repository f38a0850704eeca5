package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"strings"

	"github.com/bridgefall/sockaddr/addr"
	"github.com/bridgefall/sockaddr/commons/logger"
	"github.com/bridgefall/sockaddr/gather"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "inspect":
		runInspect(os.Args[2:])
	case "gather":
		runGather(os.Args[2:])
	case "candidates-cbor":
		runCandidatesCBOR(os.Args[2:])
	case "arrivals":
		runArrivals(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: addrinspect <command> [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  inspect          Classify addresses (ip or ip:port)")
	fmt.Fprintln(os.Stderr, "  gather           List local candidates for a wildcard-bound socket")
	fmt.Fprintln(os.Stderr, "  candidates-cbor  Encode/decode candidate lists as CBOR")
	fmt.Fprintln(os.Stderr, "  arrivals         Listen on UDP and classify the local address of each packet")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, "  addrinspect inspect 169.254.3.4 [::ffff:127.0.0.1]:5000 2001:db8::1")
	fmt.Fprintln(os.Stderr, "  addrinspect gather -port 3478 -config gather.json")
	fmt.Fprintln(os.Stderr, "  addrinspect gather -port 3478 | addrinspect candidates-cbor -base64")
	fmt.Fprintln(os.Stderr, "  addrinspect candidates-cbor -decode -base64 -in candidates.b64")
	fmt.Fprintln(os.Stderr, "  addrinspect arrivals -listen [::]:3478 -count 5")
}

type report struct {
	Input     string `json:"input"`
	Address   string `json:"address"`
	Family    string `json:"family"`
	Length    int    `json:"length"`
	Port      uint16 `json:"port"`
	Local     bool   `json:"local"`
	Temporary bool   `json:"temporary"`
	Unmapped  string `json:"unmapped,omitempty"`
	Sockaddr  string `json:"sockaddr,omitempty"`
}

func inspect(input string) (report, error) {
	a, err := parseAddress(input)
	if err != nil {
		return report{}, err
	}
	r := report{
		Input:     input,
		Address:   a.String(),
		Family:    a.Family().String(),
		Length:    addr.LengthFor(a),
		Port:      addr.Port(a),
		Local:     addr.IsLocal(a),
		Temporary: addr.IsTemporaryIPv6(a),
	}
	if v4, ok := addr.TryUnmapV4(a); ok {
		r.Unmapped = v4.String()
	}
	r.Sockaddr = kernelForm(a)
	return r, nil
}

func parseAddress(s string) (addr.Address, error) {
	s = strings.TrimSpace(s)
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return addr.FromAddrPort(ap), nil
	}
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return nil, fmt.Errorf("parse %q: want ip or ip:port", s)
	}
	return addr.FromAddrPort(netip.AddrPortFrom(ip, 0)), nil
}

func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		fatalf("inspect: at least one address required")
	}

	enc := json.NewEncoder(os.Stdout)
	failed := false
	for _, in := range fs.Args() {
		r, err := inspect(in)
		if err != nil {
			fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
			failed = true
			continue
		}
		if err := enc.Encode(r); err != nil {
			fatalf("inspect write: %v", err)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func runGather(args []string) {
	fs := flag.NewFlagSet("gather", flag.ExitOnError)
	configPath := fs.String("config", "", "path to JSON gather config")
	port := fs.Uint("port", 0, "bound port stamped on every candidate")
	v4 := fs.Bool("4", false, "assume an IPv4-only socket")
	logLevel := fs.String("log-level", "", "log level (debug|info|warn|error)")
	stats := fs.Bool("stats", false, "print gather counters to stderr")
	_ = fs.Parse(args)

	if *port > 0xffff {
		fatalf("gather: port out of range")
	}

	cfg := gather.DefaultConfig()
	if *configPath != "" {
		loaded, err := gather.LoadConfig(*configPath)
		if err != nil {
			fatalf("config error: %v", err)
		}
		cfg = loaded
	}
	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger.Setup(level)
	logger.SetWarnInterval(cfg.WarnInterval)

	g, err := gather.New(cfg, gather.SystemSource)
	if err != nil {
		fatalf("gather: %v", err)
	}
	bound := &net.UDPAddr{IP: net.IPv6unspecified, Port: int(*port)}
	if *v4 {
		bound.IP = net.IPv4zero.To4()
	}
	cands, err := g.Gather(bound)
	if err != nil {
		fatalf("gather: %v", err)
	}
	if cands == nil {
		cands = []gather.Candidate{}
	}
	out, err := json.MarshalIndent(cands, "", "  ")
	if err != nil {
		fatalf("gather encode: %v", err)
	}
	if err := writeOutput("", out); err != nil {
		fatalf("gather write output: %v", err)
	}
	if *stats {
		snap := g.Stats()
		attrs := make([]any, 0, 2*len(snap))
		for _, name := range g.StatNames() {
			attrs = append(attrs, name, snap[name])
		}
		slog.Info("gather stats", attrs...)
	}
}

func runCandidatesCBOR(args []string) {
	fs := flag.NewFlagSet("candidates-cbor", flag.ExitOnError)
	decode := fs.Bool("decode", false, "decode CBOR into JSON")
	inPath := fs.String("in", "", "input file (defaults to stdin)")
	outPath := fs.String("out", "", "output file (defaults to stdout)")
	base64Mode := fs.Bool("base64", false, "read/write base64-wrapped CBOR")
	_ = fs.Parse(args)

	input, err := readInput(*inPath)
	if err != nil {
		fatalf("candidates-cbor read input: %v", err)
	}

	if *decode {
		if *base64Mode {
			input, err = decodeBase64(input)
			if err != nil {
				fatalf("candidates-cbor decode base64: %v", err)
			}
		}
		cands, err := gather.DecodeCandidates(input)
		if err != nil {
			fatalf("candidates-cbor decode: %v", err)
		}
		out, err := json.MarshalIndent(cands, "", "  ")
		if err != nil {
			fatalf("candidates-cbor encode json: %v", err)
		}
		if err := writeOutput(*outPath, out); err != nil {
			fatalf("candidates-cbor write output: %v", err)
		}
		return
	}

	var cands []gather.Candidate
	if err := json.Unmarshal(input, &cands); err != nil {
		fatalf("candidates-cbor parse json: %v", err)
	}
	out, err := gather.EncodeCandidates(cands)
	if err != nil {
		fatalf("candidates-cbor encode: %v", err)
	}
	if *base64Mode {
		out = []byte(base64.StdEncoding.EncodeToString(out))
	}
	if err := writeOutput(*outPath, out); err != nil {
		fatalf("candidates-cbor write output: %v", err)
	}
}

type arrival struct {
	From      string           `json:"from"`
	Candidate gather.Candidate `json:"candidate"`
}

func runArrivals(args []string) {
	fs := flag.NewFlagSet("arrivals", flag.ExitOnError)
	listen := fs.String("listen", "[::]:3478", "UDP address to listen on")
	count := fs.Int("count", 1, "packets to classify before exiting (0 runs until killed)")
	logLevel := fs.String("log-level", "info", "log level (debug|info|warn|error)")
	_ = fs.Parse(args)

	logger.Setup(*logLevel)
	laddr, err := net.ResolveUDPAddr("udp", *listen)
	if err != nil {
		fatalf("arrivals: %v", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		fatalf("arrivals listen: %v", err)
	}
	defer conn.Close()
	oob, err := gather.EnableArrival(conn)
	if err != nil {
		fatalf("arrivals: %v", err)
	}
	slog.Info("listening", "addr", conn.LocalAddr().String())

	enc := json.NewEncoder(os.Stdout)
	buf := make([]byte, 64*1024)
	for n := 0; *count == 0 || n < *count; n++ {
		_, oobn, _, from, err := conn.ReadMsgUDP(buf, oob)
		if err != nil {
			fatalf("arrivals read: %v", err)
		}
		c, err := gather.ArrivalCandidate(conn.LocalAddr(), oob[:oobn])
		if err != nil {
			slog.Warn("arrival address", "from", from.String(), "err", err)
			continue
		}
		if err := enc.Encode(arrival{From: from.String(), Candidate: c}); err != nil {
			fatalf("arrivals write: %v", err)
		}
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return err
		}
		_, err := os.Stdout.Write([]byte("\n"))
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func decodeBase64(raw []byte) ([]byte, error) {
	clean := strings.Join(strings.Fields(string(raw)), "")
	if clean == "" {
		return nil, fmt.Errorf("empty base64 input")
	}
	return base64.StdEncoding.DecodeString(clean)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
