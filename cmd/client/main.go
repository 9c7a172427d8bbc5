// vwclient dials a simulator circuit, drives the login handshake, and logs
// chat traffic until interrupted.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"dev.mvwire.core/circuit"
	"dev.mvwire.core/internal/config"
	"dev.mvwire.core/internal/diagnostics"
	"dev.mvwire.core/internal/types"
	"dev.mvwire.core/protocol/messages"
)

func main() {
	simAddr := os.Getenv("SL_SIM_ADDR")
	if simAddr == "" {
		simAddr = "127.0.0.1:13000"
	}
	circuitCode, _ := strconv.Atoi(os.Getenv("SL_CIRCUIT_CODE"))
	if circuitCode == 0 {
		log.Fatal("SL_CIRCUIT_CODE required")
	}
	agentID, err := types.ParseUUID(os.Getenv("SL_AGENT_ID"))
	if err != nil {
		log.Fatal("SL_AGENT_ID: ", err)
	}
	sessionID, err := types.ParseUUID(os.Getenv("SL_SESSION_ID"))
	if err != nil {
		log.Fatal("SL_SESSION_ID: ", err)
	}

	opts := circuit.Options{}
	if cfgPath := os.Getenv("SL_CONFIG"); cfgPath != "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Fatal("config: ", err)
		}
		opts = cfg.ToOptions()
	}
	if tracePath := os.Getenv("SL_TRACE_DB"); tracePath != "" {
		sink, err := diagnostics.Open(tracePath)
		if err != nil {
			log.Println("trace disabled:", err)
		} else {
			defer sink.Close()
			opts.Trace = sink
		}
	}

	if stunAddr := os.Getenv("SL_STUN_ADDR"); stunAddr != "" {
		ext, err := circuit.ExternalAddress(stunAddr, 3*time.Second)
		if err != nil {
			log.Println("stun:", err)
		} else {
			log.Println("external address", ext)
		}
	}

	eng, err := circuit.Dial(simAddr, opts)
	if err != nil {
		log.Fatal("dial: ", err)
	}

	eng.Register(messages.TypeChatFromSimulator, func(m messages.Message) {
		chat := m.(*messages.ChatFromSimulator)
		log.Printf("chat: %s: %s", chat.FromName, chat.Message)
	})
	eng.Register(messages.TypeKickUser, func(m messages.Message) {
		kick := m.(*messages.KickUser)
		log.Printf("kicked: %s", kick.Reason)
		os.Exit(1)
	})

	handshook := make(chan struct{})
	eng.Register(messages.TypeRegionHandshake, func(messages.Message) {
		if err := eng.Send(&messages.RegionHandshakeReply{Flags: 0}, true); err != nil {
			log.Println("region handshake reply:", err)
			return
		}
		if err := eng.Send(&messages.CompleteAgentMovement{
			AgentID:     agentID,
			SessionID:   sessionID,
			CircuitCode: uint32(circuitCode),
		}, true); err != nil {
			log.Println("complete agent movement:", err)
			return
		}
		close(handshook)
	})

	useCircuit := &messages.UseCircuitCode{
		Code:      uint32(circuitCode),
		SessionID: sessionID,
		ID:        agentID,
	}
	if err := eng.Send(useCircuit, true); err != nil {
		log.Fatal("use circuit code: ", err)
	}

	select {
	case <-handshook:
		log.Println("connected")
	case <-time.After(15 * time.Second):
		log.Fatal("handshake timed out")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("logging out")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eng.Logout(ctx, agentID, sessionID); err != nil {
		log.Println("logout:", err)
	}
}
