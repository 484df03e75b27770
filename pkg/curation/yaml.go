/*
Copyright 2026 The catalogd Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package curation

import "gopkg.in/yaml.v3"

// toYAML renders cur as the text stored in the curation repository
// (spec §6.3: "text content = YAML serialization of the curation mapping").
func toYAML(cur Curation) (string, error) {
	data, err := yaml.Marshal(cur)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
