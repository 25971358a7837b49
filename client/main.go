// 命令行客户端，用于手动测试 websocket 接口
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type reply struct {
	Event string          `json:"event"`
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
}

const usage = `commands:
  create NAME        create a room
  join ROOM NAME     join a room
  init               start the round (master)
  word WORD          set the secret word (master)
  guess LETTER       guess a letter (turn holder)
  solve WORD         guess the whole word
  restart            start the next round
  master PLAYER      hand the master role to PLAYER
  state              print the room
  leave              leave the room
  ping`

// parse 把一行输入转换为要发送的消息
func parse(line string) (message, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return message{}, fmt.Errorf("empty command")
	}
	args := fields[1:]
	rest := strings.Join(args, " ")
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s needs %d argument(s)", fields[0], n)
		}
		return nil
	}

	switch fields[0] {
	case "create":
		if err := need(1); err != nil {
			return message{}, err
		}
		return message{"create-room", map[string]string{"name": rest}}, nil
	case "join":
		if err := need(2); err != nil {
			return message{}, err
		}
		return message{"join-room", map[string]string{"roomId": args[0], "name": strings.Join(args[1:], " ")}}, nil
	case "init":
		return message{Event: "init-game"}, nil
	case "word":
		if err := need(1); err != nil {
			return message{}, err
		}
		return message{"set-word", map[string]string{"word": rest}}, nil
	case "guess":
		if err := need(1); err != nil {
			return message{}, err
		}
		return message{"new-guess", map[string]string{"letter": args[0]}}, nil
	case "solve":
		if err := need(1); err != nil {
			return message{}, err
		}
		return message{"new-word-guess", map[string]string{"word": rest}}, nil
	case "restart":
		return message{Event: "restart-game"}, nil
	case "master":
		if err := need(1); err != nil {
			return message{}, err
		}
		return message{"set-master", map[string]string{"playerId": args[0]}}, nil
	case "state":
		return message{Event: "get-state"}, nil
	case "leave":
		return message{Event: "leave-room"}, nil
	case "ping":
		return message{Event: "ping"}, nil
	}
	return message{}, fmt.Errorf("unknown command %q", fields[0])
}

func main() {
	addr := flag.String("addr", "localhost:3000", "server address")
	id := flag.String("id", "", "player id, random when empty")
	flag.Parse()
	if *id == "" {
		*id = uuid.New().String()
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws", RawQuery: url.Values{"id": {*id}}.Encode()}
	log.Printf("Connecting to %s as %s", u.String(), *id)
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var r reply
			if err := c.ReadJSON(&r); err != nil {
				log.Println("Read error:", err)
				return
			}
			status := "ok"
			if !r.OK {
				status = "FAIL"
			}
			log.Printf("<- %s [%s] %s", r.Event, status, r.Data)
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println(usage)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			msg, err := parse(line)
			if err != nil {
				log.Println(err)
				continue
			}
			if err := c.WriteJSON(msg); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> %s", msg.Event)
		}
	}
}
