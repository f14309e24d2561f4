package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/identity"
	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/keyid"
	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/scan"
	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/shared"
	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/worker"
)

var keyIdArg = []cli.Argument{
	&cli.StringArg{
		Name: "key-id",
	},
}

var decodeCommand = &cli.Command{
	Name:      "decode",
	Usage:     "Decode the AWS account id from an access key id",
	Arguments: keyIdArg,
	Action: func(ctx context.Context, cmd *cli.Command) error {
		keyId := cmd.StringArg("key-id")
		if keyId == "" {
			return errors.New("missing required argument: key-id")
		}
		accountId, err := keyid.GetAwsAccountId(keyId)
		if err != nil {
			return err
		}
		fmt.Println(accountId)
		return nil
	},
}

var resourceTypeCommand = &cli.Command{
	Name:      "resource-type",
	Usage:     "Classify the resource type of an AWS key id by its prefix",
	Arguments: keyIdArg,
	Action: func(ctx context.Context, cmd *cli.Command) error {
		keyId := cmd.StringArg("key-id")
		if keyId == "" {
			return errors.New("missing required argument: key-id")
		}
		resourceType, err := keyid.GetAssociatedResourceType(keyId)
		if err != nil {
			return err
		}
		fmt.Println(resourceType)
		return nil
	},
}

var scanCommand = &cli.Command{
	Name:      "scan",
	Usage:     "Scan files for access key ids and iam arns and report the accounts they belong to",
	Arguments: []cli.Argument{&cli.StringArgs{Name: "path", Min: 1, Max: -1}},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "output",
			Usage: "filename of the csv report",
			Value: "keyid-findings.csv",
		},
		&cli.StringFlag{
			Name:  "output-dir",
			Usage: "directory the report is written into",
		},
		&cli.FloatFlag{
			Name:  "min-entropy",
			Usage: "minimum shannon entropy for key id candidates, 0 disables filtering",
			Value: shared.RequiredIdEntropy,
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "number of decode workers",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		paths := cmd.StringArgs("path")
		if len(paths) == 0 {
			return errors.New("missing required argument: path")
		}

		scanner, err := scan.NewScanner(scan.ScannerConfig{
			Ctx: ctx,
			OutputConfig: worker.OutputConfiguration{
				Headers:   shared.ReportHeaders,
				Filename:  cmd.String("output"),
				OutputDir: cmd.String("output-dir"),
			},
			MinEntropy: cmd.Float("min-entropy"),
			NumWorkers: int(cmd.Int("workers")),
		})
		if err != nil {
			return err
		}

		summary, err := scanner.Scan(paths)
		if err != nil {
			return err
		}
		fmt.Printf("scanned %d files, %d candidates, %d unique matches\n",
			summary.FilesScanned, summary.CandidatesFound, summary.UniqueMatches)
		return nil
	},
}

var whoamiCommand = &cli.Command{
	Name:  "whoami",
	Usage: "Decode the account behind the locally configured AWS credentials without calling STS",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "profile",
			Usage: "shared config profile to resolve credentials from",
		},
		&cli.StringFlag{
			Name:  "access-key-id",
			Usage: "decode an explicit access key id instead of the credential chain",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		resolver, err := identity.NewResolver(ctx, identity.ResolverConfig{
			Profile:     cmd.String("profile"),
			AccessKeyId: cmd.String("access-key-id"),
		})
		if err != nil {
			return err
		}

		callerIdentity, err := resolver.Resolve(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("access key id : %s\n", callerIdentity.AccessKeyId)
		fmt.Printf("account id    : %s\n", callerIdentity.AccountId)
		if callerIdentity.ResourceType != "" {
			fmt.Printf("resource type : %s\n", callerIdentity.ResourceType)
		}
		if callerIdentity.Source != "" {
			fmt.Printf("source        : %s\n", callerIdentity.Source)
		}
		return nil
	},
}

func main() {
	cmd := &cli.Command{
		Name:  "keyid",
		Usage: "Decode AWS account ids and resource types from access key ids",
		Commands: []*cli.Command{
			decodeCommand,
			resourceTypeCommand,
			scanCommand,
			whoamiCommand,
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Printf("error : [%v]\n", err.Error())
		os.Exit(1)
	}
}
