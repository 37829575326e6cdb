package cli

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"spotbroker/internal/domain/model"
)

func NewSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a job to a broker and print its status messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			command, _ := cmd.Flags().GetString("command")
			bid, _ := cmd.Flags().GetFloat64("bid")
			account, _ := cmd.Flags().GetInt64("account")

			req := model.JobRequest{
				Resource:         model.SpotPriceResource(),
				BidPrice:         bid,
				ScriptParameters: model.ScriptParameters{Command: command},
				UserAccount:      account,
			}
			return submit(cmd, server, req)
		},
	}

	cmd.Flags().String("server", "", "broker address (host:port)")
	cmd.Flags().String("command", "", "command to execute on the broker")
	cmd.Flags().Float64("bid", 0, "the price to bid for a slot")
	cmd.Flags().Int64("account", 3, "bank account to charge")
	cmd.MarkFlagRequired("server")
	cmd.MarkFlagRequired("command")
	cmd.MarkFlagRequired("bid")
	return cmd
}

func submit(cmd *cobra.Command, server string, req model.JobRequest) error {
	u := url.URL{Scheme: "ws", Host: server, Path: "/run"}
	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	out := cmd.OutOrStdout()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				fmt.Fprintln(out, "### closed ###")
				return nil
			}
			return fmt.Errorf("read status: %w", err)
		}

		var msg model.StatusMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("invalid status message %q: %w", data, err)
		}
		fmt.Fprintln(out, string(data))
		if msg.Status == model.SessionStatusError || msg.Status == model.SessionStatusChargingError {
			return fmt.Errorf("broker reported %s: %s", msg.Status, msg.Data)
		}
	}
}
