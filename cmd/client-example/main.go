package main

import (
	"fmt"
	"log"

	"github.com/reactorkv/reactorkv/pkg/client"
)

func main() {
	c := client.New("localhost:1234")
	defer c.Close()

	fmt.Println("=== reactorkv client example ===")

	fmt.Println("\n--- String Operations ---")

	if err := c.Set("user:1", "john_doe"); err != nil {
		log.Printf("SET failed: %v", err)
	} else {
		fmt.Println("SET user:1 = john_doe")
	}

	if value, ok, err := c.Get("user:1"); err != nil {
		log.Printf("GET failed: %v", err)
	} else {
		fmt.Printf("GET user:1 = %q (present: %t)\n", value, ok)
	}

	if deleted, err := c.Del("user:1"); err != nil {
		log.Printf("DEL failed: %v", err)
	} else {
		fmt.Printf("DEL user:1 = %t\n", deleted)
	}

	fmt.Println("\n--- Sorted Set Operations ---")

	for _, m := range []struct {
		name  string
		score float64
	}{{"alice", 90}, {"bob", 72}, {"carol", 88}} {
		if _, err := c.ZAdd("leaderboard", m.score, m.name); err != nil {
			log.Printf("ZADD failed: %v", err)
		}
	}

	if score, ok, err := c.ZScore("leaderboard", "carol"); err != nil {
		log.Printf("ZSCORE failed: %v", err)
	} else {
		fmt.Printf("ZSCORE leaderboard carol = %v (present: %t)\n", score, ok)
	}

	members, err := c.ZQuery("leaderboard", 0, "", 0, 10)
	if err != nil {
		log.Printf("ZQUERY failed: %v", err)
	} else {
		fmt.Println("ZQUERY leaderboard 0 '' 0 10:")
		for _, m := range members {
			fmt.Printf("  %s -> %v\n", m.Name, m.Score)
		}
	}

	if removed, err := c.ZRem("leaderboard", "bob"); err != nil {
		log.Printf("ZREM failed: %v", err)
	} else {
		fmt.Printf("ZREM leaderboard bob = %t\n", removed)
	}

	fmt.Println("\n--- Cleanup ---")

	keys, err := c.Keys()
	if err != nil {
		log.Printf("KEYS failed: %v", err)
	} else {
		for _, key := range keys {
			if deleted, err := c.Del(key); err != nil {
				log.Printf("DEL %s failed: %v", key, err)
			} else if deleted {
				fmt.Printf("Deleted: %s\n", key)
			}
		}
	}

	fmt.Println("\n=== Example Complete ===")
}
