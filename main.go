package main

import (
	"fmt"

	"github.com/chatline/chat-delivery-service/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
