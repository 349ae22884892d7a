// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package resolver

// synonyms is the curated dictionary mapping normalized user phrases to
// canonical CUR product codes. Keys are normalized with normalizePhrase
// (lowercased, whitespace and punctuation stripped).
var synonyms = map[string]string{
	// Compute
	"ec2":                  "AmazonEC2",
	"virtualmachines":      "AmazonEC2",
	"instances":            "AmazonEC2",
	"lambda":               "AWSLambda",
	"functions":            "AWSLambda",
	"serverless":           "AWSLambda",
	"ecs":                  "AmazonECS",
	"elasticcontainerservice": "AmazonECS",
	"fargate":              "AmazonECS",
	"eks":                  "AmazonEKS",
	"kubernetes":           "AmazonEKS",
	"lightsail":            "AmazonLightsail",
	"batch":                "AWSBatch",

	// Storage
	"s3":                  "AmazonS3",
	"simplestorageservice": "AmazonS3",
	"objectstorage":       "AmazonS3",
	"buckets":             "AmazonS3",
	"ebs":                 "AmazonEC2", // EBS is billed under EC2 usage types
	"efs":                 "AmazonEFS",
	"elasticfilesystem":   "AmazonEFS",
	"glacier":             "AmazonGlacier",
	"fsx":                 "AmazonFSx",
	"backup":              "AWSBackup",

	// Database
	"rds":                "AmazonRDS",
	"relationaldatabase": "AmazonRDS",
	"aurora":             "AmazonRDS",
	"mysql":              "AmazonRDS",
	"postgres":           "AmazonRDS",
	"postgresql":         "AmazonRDS",
	"dynamodb":           "AmazonDynamoDB",
	"dynamo":             "AmazonDynamoDB",
	"redshift":           "AmazonRedshift",
	"elasticache":        "AmazonElastiCache",
	"redis":              "AmazonElastiCache",
	"memcached":          "AmazonElastiCache",
	"documentdb":         "AmazonDocDB",
	"neptune":            "AmazonNeptune",
	"timestream":         "AmazonTimestream",

	// Networking
	"cloudfront":              "AmazonCloudFront",
	"cdn":                     "AmazonCloudFront",
	"route53":                 "AmazonRoute53",
	"dns":                     "AmazonRoute53",
	"vpc":                     "AmazonVPC",
	"natgateway":              "AmazonVPC",
	"elb":                     "AWSELB",
	"loadbalancer":            "AWSELB",
	"elasticloadbalancing":    "AWSELB",
	"alb":                     "AWSELB",
	"nlb":                     "AWSELB",
	"apigateway":              "AmazonApiGateway",
	"directconnect":           "AWSDirectConnect",
	"transitgateway":          "AWSTransitGateway",
	"globalaccelerator":       "AWSGlobalAccelerator",

	// Analytics
	"athena":        "AmazonAthena",
	"emr":           "ElasticMapReduce",
	"elasticmapreduce": "ElasticMapReduce",
	"kinesis":       "AmazonKinesis",
	"firehose":      "AmazonKinesisFirehose",
	"glue":          "AWSGlue",
	"quicksight":    "AmazonQuickSight",
	"opensearch":    "AmazonES",
	"elasticsearch": "AmazonES",
	"msk":           "AmazonMSK",
	"kafka":         "AmazonMSK",

	// ML / AI
	"sagemaker":  "AmazonSageMaker",
	"bedrock":    "AmazonBedrock",
	"rekognition": "AmazonRekognition",
	"comprehend": "AmazonComprehend",
	"textract":   "AmazonTextract",
	"polly":      "AmazonPolly",
	"transcribe": "AmazonTranscribe",

	// Messaging / integration
	"sqs":           "AWSQueueService",
	"queueservice":  "AWSQueueService",
	"sns":           "AmazonSNS",
	"notifications": "AmazonSNS",
	"ses":           "AmazonSES",
	"email":         "AmazonSES",
	"eventbridge":   "AmazonEventBridge",
	"stepfunctions": "AmazonStates",
	"mq":            "AmazonMQ",
	"appsync":       "AWSAppSync",

	// Security / management
	"kms":            "awskms",
	"keymanagement":  "awskms",
	"secretsmanager": "AWSSecretsManager",
	"cloudwatch":     "AmazonCloudWatch",
	"monitoring":     "AmazonCloudWatch",
	"logs":           "AmazonCloudWatch",
	"cloudtrail":     "AWSCloudTrail",
	"config":         "AWSConfig",
	"waf":            "awswaf",
	"shield":         "AWSShield",
	"guardduty":      "AmazonGuardDuty",
	"inspector":      "AmazonInspector",
	"systemsmanager": "AWSSystemsManager",
	"ssm":            "AWSSystemsManager",

	// Developer tools
	"codebuild":  "CodeBuild",
	"codepipeline": "AWSCodePipeline",
	"ecr":        "AmazonECR",
	"containerregistry": "AmazonECR",
	"cloudformation": "AWSCloudFormation",
	"amplify":    "AWSAmplify",
	"workspaces": "AmazonWorkSpaces",
}
