// Command client is a small CLI for driving the order book server over its
// line protocol: flag-driven one-shot actions, plus a background goroutine
// printing whatever reports arrive on the connection.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the order book server")
	action := flag.String("action", "limit", "action: limit, market, stop, cancel, amend, ping, bestbid, bestask, depth")
	id := flag.Uint64("id", 0, "order id")
	side := flag.String("side", "buy", "buy or sell")
	price := flag.Int64("price", 100, "limit or stop price")
	newPrice := flag.Int64("new-price", 0, "new price, for amend")
	qtyStr := flag.String("qty", "10", "quantity, or comma-separated list for repeated limit placement")
	tif := flag.String("tif", "GTC", "time in force: GTC, DAY, IOC, FOK")
	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", *serverAddr)

	go readReports(conn)

	switch strings.ToLower(*action) {
	case "limit":
		for i, qty := range parseQuantities(*qtyStr) {
			line := fmt.Sprintf("LIMIT %d %s %d %d %s\n", *id+uint64(i), strings.ToUpper(*side), *price, qty, strings.ToUpper(*tif))
			if _, err := fmt.Fprint(conn, line); err != nil {
				log.Printf("failed to send LIMIT: %v", err)
			}
			time.Sleep(5 * time.Millisecond)
		}

	case "market":
		qty := parseQuantities(*qtyStr)[0]
		fmt.Fprintf(conn, "MARKET %s %d\n", strings.ToUpper(*side), qty)

	case "stop":
		qty := parseQuantities(*qtyStr)[0]
		fmt.Fprintf(conn, "STOP %d %s %d %d %s\n", *id, strings.ToUpper(*side), *price, qty, strings.ToUpper(*tif))

	case "cancel":
		fmt.Fprintf(conn, "CANCEL %d\n", *id)

	case "amend":
		qty := parseQuantities(*qtyStr)[0]
		fmt.Fprintf(conn, "AMEND %d %d %d\n", *id, qty, *newPrice)

	case "ping":
		fmt.Fprint(conn, "PING\n")

	case "bestbid":
		fmt.Fprint(conn, "BESTBID\n")

	case "bestask":
		fmt.Fprint(conn, "BESTASK\n")

	case "depth":
		fmt.Fprintf(conn, "DEPTH %s %d\n", strings.ToUpper(*side), *price)

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("listening for reports... (ctrl-C to exit)")
	select {}
}

func parseQuantities(input string) []int64 {
	var out []int64
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			log.Printf("invalid quantity %q, skipping", p)
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		out = append(out, 1)
	}
	return out
}

func readReports(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		fmt.Println(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Printf("connection lost: %v", err)
	}
	os.Exit(0)
}
