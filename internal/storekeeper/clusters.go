package storekeeper

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/pkg/models"
)

// clusterFields is lpar1 lpar2 : group active
const clusterFields = 5

// LoadClusters reads the cluster table. Blank lines and # comments are
// ignored, duplicate and reversed pairs collapse, and any malformed line is a
// contract violation.
func LoadClusters(path string) ([]models.ClusterPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cluster table: %w", err)
	}
	defer f.Close()

	var pairs []models.ClusterPair
	seen := make(map[[2]string]bool)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != clusterFields || fields[2] != ":" {
			return nil, fmt.Errorf("%w: %s:%d: expected \"lpar1 lpar2 : group active\", got %q",
				models.ErrContractViolation, path, lineNo, line)
		}
		if fields[0] == fields[1] {
			return nil, fmt.Errorf("%w: %s:%d: %s is paired with itself",
				models.ErrContractViolation, path, lineNo, fields[0])
		}

		pair := models.ClusterPair{
			Lpar1:  fields[0],
			Lpar2:  fields[1],
			Group:  fields[3],
			Active: fields[4],
		}
		if seen[pair.Key()] {
			continue
		}
		seen[pair.Key()] = true
		pairs = append(pairs, pair)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cluster table: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"path":  path,
		"pairs": len(pairs),
	}).Debug("Cluster table loaded")
	return pairs, nil
}

// activePairs keeps pairs whose members are both active monitored hosts.
// A host already claimed by an earlier pair drops the later pair.
func activePairs(pairs []models.ClusterPair, activeHosts map[string]bool) []models.ClusterPair {
	claimed := make(map[string]string)
	var out []models.ClusterPair

	for _, p := range pairs {
		if !activeHosts[p.Lpar1] || !activeHosts[p.Lpar2] {
			logger.WithField("pair", p.String()).Debug("Cluster pair has an inactive member")
			continue
		}

		conflict := ""
		for _, h := range p.Members() {
			if owner, ok := claimed[h]; ok {
				conflict = fmt.Sprintf("%s already merged with pair %s", h, owner)
				break
			}
		}
		if conflict != "" {
			logger.WithField("pair", p.String()).Warnf("Cluster pair dropped: %s", conflict)
			continue
		}

		claimed[p.Lpar1] = p.String()
		claimed[p.Lpar2] = p.String()
		out = append(out, p)
	}
	return out
}
