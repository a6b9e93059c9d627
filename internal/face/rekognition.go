package face

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/prelink-app/identity/internal/fault"
)

type RekognitionComparer struct {
	client *rekognition.Client
}

func NewRekognitionComparer(ctx context.Context, region, accessKeyID, secretAccessKey string) (*RekognitionComparer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, err
	}

	return &RekognitionComparer{
		client: rekognition.NewFromConfig(cfg),
	}, nil
}

func (c *RekognitionComparer) Compare(ctx context.Context, source, target []byte, threshold float64) (float64, error) {
	out, err := c.client.CompareFaces(ctx, &rekognition.CompareFacesInput{
		SourceImage:         &types.Image{Bytes: source},
		TargetImage:         &types.Image{Bytes: target},
		SimilarityThreshold: aws.Float32(float32(threshold)),
	})
	if err != nil {
		return 0, classifyRekognitionError(err)
	}

	// FaceMatches only contains matches at or above the threshold, ordered
	// by similarity. Empty means no face pair cleared the floor.
	best := 0.0
	for _, match := range out.FaceMatches {
		if match.Similarity != nil && float64(*match.Similarity) > best {
			best = float64(*match.Similarity)
		}
	}

	return best, nil
}

func classifyRekognitionError(err error) error {
	const op = "face.compare"

	var (
		invalidImage  *types.InvalidImageFormatException
		imageTooLarge *types.ImageTooLargeException
		invalidParam  *types.InvalidParameterException
		throughput    *types.ProvisionedThroughputExceededException
		throttling    *types.ThrottlingException
		internal      *types.InternalServerError
	)

	switch {
	// InvalidParameterException is what Rekognition raises when it finds no
	// face in the source image; the input was processed but holds no signal.
	case errors.As(err, &invalidImage), errors.As(err, &imageTooLarge), errors.As(err, &invalidParam):
		return fault.Input(op, err)
	case errors.As(err, &throughput), errors.As(err, &throttling), errors.As(err, &internal):
		return fault.Transient(op, err)
	default:
		return fault.Classify(op, err)
	}
}
