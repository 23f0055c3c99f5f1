// Command mqttc is a thin publish/subscribe/ping CLI over the mqttc
// client, mirroring the original source's examples/{pub,sub,ping}.rs: a
// terminal front-end, not part of the core codec/engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gonzalop/mqttc"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "pub":
		err = runPub(os.Args[2:])
	case "sub":
		err = runSub(os.Args[2:])
	case "ping":
		err = runPing(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "mqttc:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: mqttc <pub|sub|ping> -addr host:port [flags]")
}

func dial(addr string, keepAlive time.Duration, verbose bool) (*mqttc.Client, error) {
	opts := []mqttc.Option{
		mqttc.WithKeepAlive(keepAlive),
		mqttc.WithReconnect(mqttc.ReconnectAfter(5 * time.Second)),
	}
	if verbose {
		opts = append(opts, mqttc.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	}
	return mqttc.Dial(context.Background(), addr, opts...)
}

func runPub(args []string) error {
	fs := flag.NewFlagSet("pub", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:1883", "broker address")
	qos := fs.Int("qos", 0, "QoS level (0, 1, or 2)")
	retain := fs.Bool("retain", false, "set the retain flag")
	keepAlive := fs.Duration("keepalive", 15*time.Second, "keep-alive interval")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 2 {
		return fmt.Errorf("usage: mqttc pub -addr host:port <topic> <message>")
	}
	topicName, message := rest[0], rest[1]

	client, err := dial(*addr, *keepAlive, *verbose)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	return client.Publish(context.Background(), topicName, []byte(message),
		mqttc.WithQoS(mqttc.QoS(*qos)), mqttc.WithRetain(*retain))
}

func runSub(args []string) error {
	fs := flag.NewFlagSet("sub", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:1883", "broker address")
	qos := fs.Int("qos", 0, "requested QoS level")
	keepAlive := fs.Duration("keepalive", 15*time.Second, "keep-alive interval")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 1 {
		return fmt.Errorf("usage: mqttc sub -addr host:port <filter>")
	}
	filter := rest[0]

	client, err := dial(*addr, *keepAlive, *verbose)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	if err := client.Subscribe(mqttc.SubscribeTopic{Filter: filter, QoS: mqttc.QoS(*qos)}); err != nil {
		return err
	}

	for {
		msg, err := client.Await()
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}
		fmt.Printf("%s qos=%d retain=%t: %s\n", msg.Topic.String(), msg.QoS, msg.Retain, msg.Payload)
		if msg.QoS == mqttc.ExactlyOnce {
			if err := client.Complete(msg.Pid); err != nil {
				return err
			}
		}
	}
}

func runPing(args []string) error {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:1883", "broker address")
	keepAlive := fs.Duration("keepalive", 15*time.Second, "keep-alive interval")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Parse(args)

	client, err := dial(*addr, *keepAlive, *verbose)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	fmt.Println("connected, session_present =", client.SessionPresent())
	for {
		msg, err := client.Await()
		if err != nil {
			return err
		}
		if msg == nil {
			fmt.Println(".")
			continue
		}
		fmt.Printf("%s: %s\n", msg.Topic.String(), msg.Payload)
	}
}
