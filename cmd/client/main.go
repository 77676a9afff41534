// Command client is a thin interactive terminal client for a
// partyline server. It parses local /commands, sends the matching
// packets and prints whatever the server sends back. Session state
// lives on the server; the client only remembers its active channel.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/mwren/partyline/pkg/protocol"
)

const keepAliveInterval = 30 * time.Second

type client struct {
	conn     *net.UDPConn
	username string
	active   string // channel bare text is sent to
}

func (c *client) send(pkt protocol.Packet) {
	if _, err := c.conn.Write(pkt.Marshal()); err != nil {
		fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
	}
}

// receive prints inbound packets until the server forces a disconnect
// or shuts down, then exits the process.
func (c *client) receive() {
	buf := make([]byte, protocol.MaxDatagram)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connection lost: %v\n", err)
			os.Exit(1)
		}

		kind, text, err := protocol.UnmarshalNotice(buf[:n])
		if err != nil {
			continue
		}
		switch kind {
		case protocol.KindSay:
			pkt, err := protocol.Unmarshal(buf[:n])
			if err != nil {
				continue
			}
			fmt.Printf("[%s] %s: %s\n", pkt.Channel, pkt.Username, pkt.Text)
		case protocol.KindLogout:
			fmt.Println("server closed the session:", text)
			os.Exit(0)
		case protocol.KindShutdown:
			fmt.Println("server:", text)
			os.Exit(0)
		default:
			fmt.Println(text)
		}
	}
}

// keepAlive keeps the session out of the server's inactivity window
// while the user is idle.
func (c *client) keepAlive() {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.send(protocol.Packet{Kind: protocol.KindKeepAlive, Username: c.username})
	}
}

func (c *client) handleCommand(line string) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/exit":
		c.send(protocol.Packet{Kind: protocol.KindLogout, Username: c.username})
		fmt.Println("logged out")
		os.Exit(0)
	case "/list":
		c.send(protocol.Packet{Kind: protocol.KindList})
	case "/join":
		if arg == "" {
			fmt.Println("usage: /join <channel>")
			return
		}
		c.send(protocol.Packet{Kind: protocol.KindJoin, Username: c.username, Channel: arg})
		c.active = arg
	case "/leave":
		if arg == "" {
			arg = c.active
		}
		c.send(protocol.Packet{Kind: protocol.KindLeave, Username: c.username, Channel: arg})
	case "/switch":
		if arg == "" {
			fmt.Println("usage: /switch <channel>")
			return
		}
		c.active = arg
	case "/who":
		if arg == "" {
			arg = c.active
		}
		c.send(protocol.Packet{Kind: protocol.KindWho, Channel: arg})
	case "/say":
		c.say(arg)
	default:
		if strings.HasPrefix(cmd, "/") {
			fmt.Println("unknown command:", cmd)
			return
		}
		c.say(strings.TrimSpace(line))
	}
}

func (c *client) say(text string) {
	if text == "" {
		fmt.Println("nothing to say")
		return
	}
	c.send(protocol.Packet{
		Kind:     protocol.KindSay,
		Channel:  c.active,
		Username: c.username,
		Text:     text,
	})
}

func main() {
	serverAddr := flag.String("server", "localhost:5000", "server address")
	username := flag.String("username", "", "username to log in with")
	channel := flag.String("channel", "Common", "initial active channel")
	flag.Parse()

	name := *username
	if name == "" {
		fmt.Print("Enter your username: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintln(os.Stderr, "no username given")
			os.Exit(1)
		}
		name = strings.TrimSpace(line)
	}
	if name == "" {
		fmt.Fprintln(os.Stderr, "no username given")
		os.Exit(1)
	}

	addr, err := net.ResolveUDPAddr("udp", *serverAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve %s: %v\n", *serverAddr, err)
		os.Exit(1)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", *serverAddr, err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	c := &client{conn: conn, username: name, active: *channel}
	c.send(protocol.Packet{Kind: protocol.KindLogin, Username: name})

	go c.receive()
	go c.keepAlive()

	fmt.Printf("logged in as %s, active channel %s (type /exit to quit)\n", name, c.active)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.handleCommand(line)
	}
	c.send(protocol.Packet{Kind: protocol.KindLogout, Username: name})
}
