// Command inspect dumps the message store as a table, for local debugging
// of a badger directory.
//
//	go run ./cmd/tools/inspect -db ./data -prefix msg:
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/olekukonko/tablewriter"
)

type storedMessage struct {
	ID         string   `cbor:"id"`
	SenderID   string   `cbor:"sender_id"`
	ReceiverID string   `cbor:"receiver_id"`
	Content    string   `cbor:"content"`
	CreatedAt  int64    `cbor:"created_at"`
	ReadBy     []string `cbor:"read_by"`
}

func main() {
	dbPath := flag.String("db", "./data", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg: or conv:)")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithReadOnly(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Sender", "Receiver", "Created", "Read By", "Content"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				var m storedMessage
				if err := cbor.Unmarshal(v, &m); err != nil {
					// Index rows hold only the target id; print it raw.
					table.Append([]string{key, "", "", "", "", string(v)})
					return nil
				}
				table.Append([]string{
					key,
					m.SenderID,
					m.ReceiverID,
					time.Unix(0, m.CreatedAt).UTC().Format(time.RFC3339),
					fmt.Sprintf("%v", m.ReadBy),
					m.Content,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Scan failed: ", err)
	}

	table.Render()
}
