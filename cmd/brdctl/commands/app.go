package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/BerylCAtieno/brdflow/internal/similarity"
)

// NewApp builds the brdctl command tree.
func NewApp() *cli.Command {
	return &cli.Command{
		Name:  "brdctl",
		Usage: "Upload recordings, build BRDs and manage tickets against the agents API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment file path",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "agents API base URL (overrides API_BASE_URL)",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "status poll interval (overrides POLL_INTERVAL)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level written to stderr",
				Value: "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "Upload a PDF or recording",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "follow the file until processing finishes",
					},
				},
				Action: UploadAction,
			},
			{
				Name:      "file",
				Usage:     "Show a file's status and key points",
				ArgsUsage: "<file-id>",
				Action:    FileShowAction,
			},
			{
				Name:      "watch",
				Usage:     "Follow a file until processing finishes",
				ArgsUsage: "<file-id>",
				Action:    WatchAction,
			},
			{
				Name:  "brd",
				Usage: "BRD commands",
				Commands: []*cli.Command{
					{
						Name:  "create",
						Usage: "Create a BRD from selected key points",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "file",
								Usage:    "file ID",
								Required: true,
							},
							&cli.StringSliceFlag{
								Name:     "point",
								Usage:    "key point text (repeatable)",
								Required: true,
							},
						},
						Action: BRDCreateAction,
					},
					{
						Name:      "show",
						Usage:     "Show a BRD",
						ArgsUsage: "<brd-id>",
						Action:    BRDShowAction,
					},
					{
						Name:      "pdf",
						Usage:     "Download a BRD's PDF",
						ArgsUsage: "<brd-id>",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "out",
								Usage: "output file (defaults to <brd-id>.pdf)",
							},
						},
						Action: BRDPDFAction,
					},
					{
						Name:  "similar",
						Usage: "Find BRDs similar to a set of key points",
						Flags: []cli.Flag{
							&cli.StringSliceFlag{
								Name:     "point",
								Usage:    "key point text (repeatable)",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "file",
								Usage: "file whose key point embeddings score the candidates",
							},
							&cli.FloatFlag{
								Name:  "threshold",
								Usage: "cosine score a BRD must exceed when --file is set",
								Value: similarity.DefaultThreshold,
							},
						},
						Action: BRDSimilarAction,
					},
				},
			},
			{
				Name:  "tickets",
				Usage: "Ticket commands",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List tickets",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "brd",
								Usage: "only tickets of this BRD",
							},
						},
						Action: TicketListAction,
					},
					{
						Name:  "create",
						Usage: "Create a ticket for a BRD",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "brd",
								Usage:    "BRD ID",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "title",
								Usage:    "ticket title",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "description",
								Usage:    "ticket description",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "type",
								Usage: "feature, bug or improvement",
								Value: "feature",
							},
						},
						Action: TicketCreateAction,
					},
				},
			},
			{
				Name:  "feedback",
				Usage: "Rate a BRD",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "brd",
						Usage:    "BRD ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "rating",
						Usage:    "0.5 to 5 in steps of 0.5",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "comments",
						Usage: "free-form comments",
					},
				},
				Action: FeedbackAction,
			},
		},
	}
}
